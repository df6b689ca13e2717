package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/calebh/sift/internal/model"
)

// ApplyOutcome reports side effects of replaying one event.
type ApplyOutcome struct {
	OrphanThreadCreated bool
}

// ApplyEvent replays a single event against the derived tables. The view
// builder uses this so live ingest and rebuild converge on identical state.
func ApplyEvent(ctx context.Context, tx *sql.Tx, ev model.Event) (ApplyOutcome, error) {
	var outcome ApplyOutcome

	switch {
	case ev.Op == model.OpUpsert && ev.Entity == model.EntityMessage:
		var msg model.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			return outcome, fmt.Errorf("decode message event: %w", err)
		}
		if msg.ID == "" || msg.Source.Platform == "" || msg.Source.PlatformID == "" {
			return outcome, fmt.Errorf("message event missing required fields")
		}
		orphan, err := applyMessage(ctx, tx, msg)
		if err != nil {
			return outcome, err
		}
		outcome.OrphanThreadCreated = orphan
		return outcome, nil

	case ev.Op == model.OpUpsert && ev.Entity == model.EntityThread:
		var t model.Thread
		if err := json.Unmarshal(ev.Data, &t); err != nil {
			return outcome, fmt.Errorf("decode thread event: %w", err)
		}
		if t.ID == "" {
			return outcome, fmt.Errorf("thread event missing id")
		}
		return outcome, applyThread(ctx, tx, t)

	case ev.Op == model.OpUpsert && ev.Entity == model.EntityAccount:
		var a model.Account
		if err := json.Unmarshal(ev.Data, &a); err != nil {
			return outcome, fmt.Errorf("decode account event: %w", err)
		}
		if a.ID == "" {
			return outcome, fmt.Errorf("account event missing id")
		}
		return outcome, applyAccount(ctx, tx, a)

	case ev.Op == model.OpThreadState:
		var change model.ThreadStateChange
		if err := json.Unmarshal(ev.Data, &change); err != nil {
			return outcome, fmt.Errorf("decode thread state event: %w", err)
		}
		if change.ThreadID == "" {
			return outcome, fmt.Errorf("thread state event missing thread id")
		}
		return outcome, applyThreadState(ctx, tx, change)

	default:
		return outcome, fmt.Errorf("unknown event %s/%s", ev.Op, ev.Entity)
	}
}

// Events returns events after a sequence number, oldest first.
func (s *Store) Events(ctx context.Context, afterSeq int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, op, entity, data, created_at
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		var data string
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Op, &ev.Entity, &data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Data = json.RawMessage(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}
