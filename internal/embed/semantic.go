package embed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/calebh/sift/internal/search"
)

const defaultSemanticLimit = 20

// SemanticResult is one similarity hit. Score is raw cosine in [-1, 1].
type SemanticResult struct {
	MessageID string  `json:"message_id"`
	ThreadID  string  `json:"thread_id,omitempty"`
	Platform  string  `json:"platform"`
	Snippet   string  `json:"snippet"`
	CreatedAt int64   `json:"created_at"`
	Score     float64 `json:"score"`
}

// SemanticSearch embeds the query and ranks stored vectors by cosine
// similarity, descending, ties broken by more recent created_at. When
// filters are set, the candidate id set is computed first and intersected so
// narrow filters avoid a full-corpus scan.
func (s *Store) SemanticSearch(ctx context.Context, embedder Embedder, query string, f search.Filters) ([]SemanticResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("semantic search: query is required")
	}
	if embedder == nil {
		return nil, ErrEmbedderUnavailable
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrEmbedderUnavailable)
	}
	queryVec := vectors[0]

	candidates, err := search.CandidateIDs(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	if candidates != nil && len(candidates) == 0 {
		return nil, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultSemanticLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.message_id, e.embedding_blob, e.dimension,
		       m.thread_id, m.source_platform, m.content, m.created_at
		FROM embeddings e
		JOIN messages m ON m.id = e.message_id
		WHERE e.model = ?
	`, embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var results []SemanticResult
	for rows.Next() {
		var messageID string
		var blob []byte
		var dimension int
		var threadID, content sql.NullString
		var platform string
		var createdAt int64
		if err := rows.Scan(&messageID, &blob, &dimension, &threadID, &platform, &content, &createdAt); err != nil {
			continue
		}
		if candidates != nil {
			if _, ok := candidates[messageID]; !ok {
				continue
			}
		}
		if dimension != len(queryVec) {
			continue
		}
		vec := decodeVector(blob)
		if len(vec) != len(queryVec) {
			continue
		}

		results = append(results, SemanticResult{
			MessageID: messageID,
			ThreadID:  threadID.String,
			Platform:  platform,
			Snippet:   buildSnippet(content.String, 240),
			CreatedAt: createdAt,
			Score:     cosineSimilarity(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt > results[j].CreatedAt
		}
		return results[i].MessageID < results[j].MessageID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func buildSnippet(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}
