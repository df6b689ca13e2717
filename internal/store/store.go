package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calebh/sift/internal/model"
	"github.com/calebh/sift/internal/search"
)

// Store is the event-sourced message store. Append is the only write path;
// the messages/threads/accounts tables and the FTS index are projections
// applied in the same transaction as the event row.
type Store struct {
	db *sql.DB
}

// New creates a store over an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read-only collaborators.
func (s *Store) DB() *sql.DB {
	return s.db
}

// IngestResult reports what a batch append did. Malformed records are
// counted, never fatal.
type IngestResult struct {
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"-"`
}

// AppendMessage appends a single message event and applies its projections.
func (s *Store) AppendMessage(ctx context.Context, msg model.Message) error {
	res, err := s.AppendMessages(ctx, []model.Message{msg})
	if err != nil {
		return err
	}
	if res.Errors > 0 {
		return fmt.Errorf("message missing source platform or platform id")
	}
	return nil
}

// AppendMessages appends a batch of message events in one transaction.
// A crash mid-batch leaves the store at the previous committed batch.
func (s *Store) AppendMessages(ctx context.Context, msgs []model.Message) (IngestResult, error) {
	start := time.Now()
	result := IngestResult{}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, msg := range msgs {
		if msg.Source.Platform == "" || msg.Source.PlatformID == "" {
			result.Errors++
			continue
		}
		if msg.ID == "" {
			msg.ID = model.MessageID(msg.Source)
		}
		if msg.Kind == "" {
			msg.Kind = model.KindText
		}
		if msg.ImportedAt == 0 {
			msg.ImportedAt = now
		}
		if msg.CreatedAt == 0 {
			msg.CreatedAt = now
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE id = ?`, msg.ID).Scan(&exists); err != nil {
			result.Errors++
			continue
		}

		data, err := json.Marshal(msg)
		if err != nil {
			result.Errors++
			continue
		}
		if err := appendEvent(ctx, tx, model.OpUpsert, model.EntityMessage, data); err != nil {
			return result, fmt.Errorf("append message event: %w", err)
		}
		if _, err := applyMessage(ctx, tx, msg); err != nil {
			return result, fmt.Errorf("apply message: %w", err)
		}

		if exists > 0 {
			result.Updated++
		} else {
			result.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit batch: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// UpsertThread appends a thread upsert event. Adapters use this to supply
// richer metadata than the minimal thread created on first message.
func (s *Store) UpsertThread(ctx context.Context, thread model.Thread) error {
	if thread.ID == "" {
		return fmt.Errorf("thread id is required")
	}
	if thread.Type == "" {
		thread.Type = model.ThreadDM
	}
	if thread.ParticipantCount <= 0 {
		thread.ParticipantCount = 1
	}

	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := appendEvent(ctx, tx, model.OpUpsert, model.EntityThread, data); err != nil {
		return err
	}
	if err := applyThread(ctx, tx, thread); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertAccount appends an account upsert event.
func (s *Store) UpsertAccount(ctx context.Context, acct model.Account) error {
	if acct.ID == "" {
		return fmt.Errorf("account id is required")
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := appendEvent(ctx, tx, model.OpUpsert, model.EntityAccount, data); err != nil {
		return err
	}
	if err := applyAccount(ctx, tx, acct); err != nil {
		return err
	}
	return tx.Commit()
}

// ArchiveThread toggles the archived flag via a thread_state event.
func (s *Store) ArchiveThread(ctx context.Context, threadID string, archived bool) error {
	return s.setThreadState(ctx, threadID, "archived", archived)
}

// MuteThread toggles the muted flag via a thread_state event.
func (s *Store) MuteThread(ctx context.Context, threadID string, muted bool) error {
	return s.setThreadState(ctx, threadID, "muted", muted)
}

func (s *Store) setThreadState(ctx context.Context, threadID, field string, value bool) error {
	if threadID == "" {
		return fmt.Errorf("thread id is required")
	}

	change := model.ThreadStateChange{ThreadID: threadID, Field: field, Value: value}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal thread state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := appendEvent(ctx, tx, model.OpThreadState, model.EntityThread, data); err != nil {
		return err
	}
	if err := applyThreadState(ctx, tx, change); err != nil {
		return err
	}
	return tx.Commit()
}

// GetThread loads a single thread.
func (s *Store) GetThread(ctx context.Context, threadID string) (*model.Thread, error) {
	var t model.Thread
	var title, typ, platform sql.NullString
	var archived, muted int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, type, platform, participant_count, is_archived, is_muted
		FROM threads WHERE id = ?
	`, threadID).Scan(&t.ID, &title, &typ, &platform, &t.ParticipantCount, &archived, &muted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	t.Title = title.String
	t.Type = model.ThreadType(typ.String)
	t.Platform = platform.String
	t.IsArchived = archived == 1
	t.IsMuted = muted == 1
	return &t, nil
}

// ThreadMessages returns a thread's messages in chronological order. This
// path deliberately bypasses relevance ranking.
func (s *Store) ThreadMessages(ctx context.Context, threadID string, limit int) ([]model.Message, error) {
	return s.scopedMessages(ctx, "thread_id", threadID, limit)
}

// AccountMessages returns an account's messages in chronological order.
func (s *Store) AccountMessages(ctx context.Context, accountID string, limit int) ([]model.Message, error) {
	return s.scopedMessages(ctx, "account_id", accountID, limit)
}

func (s *Store) scopedMessages(ctx context.Context, column, value string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, kind, account_id, thread_id, content, title,
		       author_name, author_handle, source_platform, source_platform_id,
		       direction, tags_json, created_at, imported_at
		FROM messages
		WHERE ` + column + ` = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, value, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanMessage(rows *sql.Rows) (model.Message, error) {
	var m model.Message
	var accountID, threadID, content, title, authorName, authorHandle, direction, tagsJSON sql.NullString
	err := rows.Scan(&m.ID, &m.Kind, &accountID, &threadID, &content, &title,
		&authorName, &authorHandle, &m.Source.Platform, &m.Source.PlatformID,
		&direction, &tagsJSON, &m.CreatedAt, &m.ImportedAt)
	if err != nil {
		return m, err
	}
	m.AccountID = accountID.String
	m.ThreadID = threadID.String
	m.Content = content.String
	m.Title = title.String
	m.Author.Name = authorName.String
	m.Author.Handle = authorHandle.String
	m.Direction = model.Direction(direction.String)
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	return m, nil
}

func appendEvent(ctx context.Context, tx *sql.Tx, op, entity string, data []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, op, entity, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), op, entity, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// applyMessage upserts the message row, ensures its thread exists, and
// refreshes the FTS row. Returns whether an orphan thread was created.
func applyMessage(ctx context.Context, tx *sql.Tx, msg model.Message) (bool, error) {
	var tagsJSON any
	if len(msg.Tags) > 0 {
		b, err := json.Marshal(msg.Tags)
		if err != nil {
			return false, fmt.Errorf("marshal tags: %w", err)
		}
		tagsJSON = string(b)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (
			id, kind, account_id, thread_id, content, title,
			author_name, author_handle, source_platform, source_platform_id,
			direction, tags_json, created_at, imported_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, string(msg.Kind), nullable(msg.AccountID), nullable(msg.ThreadID),
		msg.Content, msg.Title, msg.Author.Name, msg.Author.Handle,
		msg.Source.Platform, msg.Source.PlatformID, string(msg.Direction),
		tagsJSON, msg.CreatedAt, msg.ImportedAt)
	if err != nil {
		return false, fmt.Errorf("upsert message: %w", err)
	}

	orphan := false
	if msg.ThreadID != "" {
		now := time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO threads (id, type, platform, participant_count, created_at, updated_at)
			VALUES (?, 'dm', ?, 1, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, msg.ThreadID, msg.Source.Platform, now, now)
		if err != nil {
			return false, fmt.Errorf("ensure thread: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			orphan = true
		}
	}

	if err := search.IndexIn(ctx, tx, msg); err != nil {
		return orphan, fmt.Errorf("index message: %w", err)
	}
	return orphan, nil
}

func applyThread(ctx context.Context, tx *sql.Tx, t model.Thread) error {
	now := time.Now().Unix()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO threads (id, title, type, platform, participant_count, is_archived, is_muted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			platform = excluded.platform,
			participant_count = excluded.participant_count,
			is_archived = excluded.is_archived,
			is_muted = excluded.is_muted,
			updated_at = excluded.updated_at
	`, t.ID, t.Title, string(t.Type), t.Platform, t.ParticipantCount,
		boolToInt(t.IsArchived), boolToInt(t.IsMuted), now, now)
	if err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}
	return nil
}

func applyAccount(ctx context.Context, tx *sql.Tx, a model.Account) error {
	var identitiesJSON any
	if len(a.Identities) > 0 {
		b, err := json.Marshal(a.Identities)
		if err != nil {
			return fmt.Errorf("marshal identities: %w", err)
		}
		identitiesJSON = string(b)
	}
	now := time.Now().Unix()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name, identities_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			identities_json = excluded.identities_json,
			updated_at = excluded.updated_at
	`, a.ID, a.Name, identitiesJSON, now, now)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func applyThreadState(ctx context.Context, tx *sql.Tx, change model.ThreadStateChange) error {
	var column string
	switch change.Field {
	case "archived":
		column = "is_archived"
	case "muted":
		column = "is_muted"
	default:
		return fmt.Errorf("unknown thread state field: %s", change.Field)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE threads SET `+column+` = ?, updated_at = ? WHERE id = ?
	`, boolToInt(change.Value), time.Now().Unix(), change.ThreadID)
	if err != nil {
		return fmt.Errorf("update thread state: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
