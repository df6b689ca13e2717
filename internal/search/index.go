package search

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calebh/sift/internal/model"
)

// Execer is satisfied by *sql.DB and *sql.Tx so indexing can join an
// ingest transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IndexIn writes the FTS row for a message. Delete-then-insert keyed by
// message id makes re-indexing the same message a no-op in ranked output.
func IndexIn(ctx context.Context, q Execer, msg model.Message) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM messages_fts WHERE message_id = ?`, msg.ID); err != nil {
		return fmt.Errorf("clear fts row: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO messages_fts (message_id, content, title)
		VALUES (?, ?, ?)
	`, msg.ID, msg.Content, msg.Title); err != nil {
		return fmt.Errorf("insert fts row: %w", err)
	}
	return nil
}

// Index makes a message immediately visible to Search.
func (s *Searcher) Index(ctx context.Context, msg model.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message id is required")
	}
	return IndexIn(ctx, s.db, msg)
}

// RebuildResult reports what an index rebuild did.
type RebuildResult struct {
	Indexed int `json:"indexed"`
	Errors  int `json:"errors"`
}

// RebuildIndex drops and regenerates the FTS index from the messages
// projection. Expected to run without concurrent ingest.
func (s *Searcher) RebuildIndex(ctx context.Context) (RebuildResult, error) {
	var result RebuildResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages_fts`); err != nil {
		return result, fmt.Errorf("clear fts: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, content, title FROM messages`)
	if err != nil {
		return result, fmt.Errorf("scan messages: %w", err)
	}

	type ftsRow struct {
		id, content, title string
	}
	var pending []ftsRow
	for rows.Next() {
		var id string
		var content, title sql.NullString
		if err := rows.Scan(&id, &content, &title); err != nil {
			result.Errors++
			continue
		}
		pending = append(pending, ftsRow{id: id, content: content.String, title: title.String})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return result, err
	}
	rows.Close()

	for _, row := range pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages_fts (message_id, content, title)
			VALUES (?, ?, ?)
		`, row.id, row.content, row.title); err != nil {
			result.Errors++
			continue
		}
		result.Indexed++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit index rebuild: %w", err)
	}
	return result, nil
}
