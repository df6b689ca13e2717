package views

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/calebh/sift/internal/model"
	"github.com/calebh/sift/internal/store"
)

// Result reports what a rebuild pass did. Corrupt events are counted, never
// fatal.
type Result struct {
	Updated       int `json:"updated"`
	OrphanThreads int `json:"orphan_threads"`
	Errors        int `json:"errors"`
}

// Rebuild replays the event log against the derived thread/account/message
// tables. Upsert semantics keyed by entity id make it idempotent: running it
// on a fresh store or re-running it on a populated one converges to the same
// state. Expected to run without concurrent ingest.
func Rebuild(ctx context.Context, db *sql.DB) (Result, error) {
	var result Result

	events, err := loadEvents(ctx, db)
	if err != nil {
		return result, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	// Every event replays in seq order, exactly as live ingest applied it.
	// Repeated message events resolve by primary-key replacement both live
	// and here, and interleaved side effects (orphan thread creation,
	// archive/mute updates) land in the same relative order.
	for _, ev := range events {
		outcome, err := store.ApplyEvent(ctx, tx, ev)
		if err != nil {
			result.Errors++
			continue
		}
		result.Updated++
		if outcome.OrphanThreadCreated {
			result.OrphanThreads++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit rebuild: %w", err)
	}
	return result, nil
}

func loadEvents(ctx context.Context, db *sql.DB) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, id, op, entity, data, created_at
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var data string
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Op, &ev.Entity, &data, &ev.CreatedAt); err != nil {
			continue
		}
		ev.Data = json.RawMessage(data)
		events = append(events, ev)
	}
	return events, rows.Err()
}
