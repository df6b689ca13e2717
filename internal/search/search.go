package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const defaultLimit = 20

// Filters narrow a search to a metadata slice. Zero values mean no filter.
type Filters struct {
	Kind      string
	Platform  string
	AccountID string
	ThreadID  string
	Since     int64
	Until     int64
	Limit     int
}

// Empty reports whether no metadata filter is set.
func (f Filters) Empty() bool {
	return f.Kind == "" && f.Platform == "" && f.AccountID == "" &&
		f.ThreadID == "" && f.Since == 0 && f.Until == 0
}

// Result is one ranked hit. Score is BM25 negated so higher is better.
type Result struct {
	MessageID string  `json:"message_id"`
	ThreadID  string  `json:"thread_id,omitempty"`
	AccountID string  `json:"account_id,omitempty"`
	Platform  string  `json:"platform"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title,omitempty"`
	Snippet   string  `json:"snippet"`
	CreatedAt int64   `json:"created_at"`
	Score     float64 `json:"score"`
}

// Searcher runs lexical queries over the FTS index.
type Searcher struct {
	db *sql.DB
}

// NewSearcher creates a searcher over an open database.
func NewSearcher(db *sql.DB) *Searcher {
	return &Searcher{db: db}
}

// Search runs a ranked full-text query with optional metadata filters.
func (s *Searcher) Search(ctx context.Context, query string, f Filters) ([]Result, error) {
	if s.db == nil {
		return nil, errors.New("search: db is nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search: query is required")
	}
	safeQuery := escapeFTSQuery(query)
	if safeQuery == "" {
		return nil, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	sqlQuery := `
		SELECT fts.message_id, bm25(messages_fts) AS score,
		       snippet(messages_fts, 1, '<mark>', '</mark>', '...', 64),
		       m.thread_id, m.account_id, m.source_platform, m.kind, m.title, m.created_at
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.message_id
		WHERE messages_fts MATCH ?`
	args := []any{safeQuery}
	sqlQuery, args = appendFilterClauses(sqlQuery, args, f)

	// BM25 is lower-is-better internally; ties break on recency then id so
	// ordering is deterministic.
	sqlQuery += " ORDER BY score ASC, m.created_at DESC, m.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var score float64
		var snippet, threadID, accountID, title sql.NullString
		if err := rows.Scan(&r.MessageID, &score, &snippet, &threadID, &accountID,
			&r.Platform, &r.Kind, &title, &r.CreatedAt); err != nil {
			continue
		}
		// Negate so callers see higher-is-better.
		r.Score = -score
		r.Snippet = snippet.String
		r.ThreadID = threadID.String
		r.AccountID = accountID.String
		r.Title = title.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// CandidateIDs resolves a filter set to matching message ids, for callers
// (semantic search) that need to intersect with another index. Returns nil
// when no filter is set, meaning "no restriction".
func CandidateIDs(ctx context.Context, db *sql.DB, f Filters) (map[string]struct{}, error) {
	if f.Empty() {
		return nil, nil
	}

	sqlQuery := `SELECT m.id FROM messages m WHERE 1=1`
	args := []any{}
	sqlQuery, args = appendFilterClauses(sqlQuery, args, f)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func appendFilterClauses(sqlQuery string, args []any, f Filters) (string, []any) {
	if f.Kind != "" {
		sqlQuery += " AND m.kind = ?"
		args = append(args, f.Kind)
	}
	if f.Platform != "" {
		sqlQuery += " AND m.source_platform = ?"
		args = append(args, f.Platform)
	}
	if f.AccountID != "" {
		sqlQuery += " AND m.account_id = ?"
		args = append(args, f.AccountID)
	}
	if f.ThreadID != "" {
		sqlQuery += " AND m.thread_id = ?"
		args = append(args, f.ThreadID)
	}
	if f.Since > 0 {
		sqlQuery += " AND m.created_at >= ?"
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		sqlQuery += " AND m.created_at <= ?"
		args = append(args, f.Until)
	}
	return sqlQuery, args
}

func splitTerms(query string) []string {
	query = strings.ToLower(query)
	parts := strings.FieldsFunc(query, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ',' || r == '.' || r == ':' || r == ';' || r == '/' || r == '\\'
	})
	var terms []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}

func escapeFTSQuery(query string) string {
	// Quote each term so FTS5 operators (AND OR NOT NEAR * - + :) in user
	// input cannot break the query.
	terms := splitTerms(query)
	escaped := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped = append(escaped, "\""+strings.ReplaceAll(term, "\"", "\"\"")+"\"")
	}
	if len(escaped) == 0 {
		return ""
	}
	// Join with OR for broader matching
	return strings.Join(escaped, " OR ")
}
