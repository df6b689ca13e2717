package embed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// ErrEmbedderUnavailable marks failures of the embedding backend so callers
// can fall back to lexical search.
var ErrEmbedderUnavailable = errors.New("embedding backend unavailable")

// Embedder turns texts into vectors. Implementations call an external
// service, so they are never invoked inline with ingest.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Store persists one active embedding per message per model.
type Store struct {
	db *sql.DB
}

// NewStore creates an embedding store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put stores or replaces the embedding for a message under a model.
func (s *Store) Put(ctx context.Context, messageID, model string, vector []float64) error {
	if messageID == "" || model == "" {
		return fmt.Errorf("message id and model are required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (message_id, model, embedding_blob, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, messageID, model, encodeVector(vector), len(vector), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// Invalidate drops embeddings for a message across all models. Embeddings
// are not auto-regenerated; the next batch job picks the message up again
// if its row still exists.
func (s *Store) Invalidate(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("invalidate embedding: %w", err)
	}
	return nil
}

type pendingMessage struct {
	ID   string
	Text string
}

// missing returns messages with text content that lack an embedding for the
// model.
func (s *Store) missing(ctx context.Context, model string) ([]pendingMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content
		FROM messages m
		LEFT JOIN embeddings e ON e.message_id = m.id AND e.model = ?
		WHERE e.message_id IS NULL AND m.content IS NOT NULL AND m.content != ''
		ORDER BY m.created_at ASC
	`, model)
	if err != nil {
		return nil, fmt.Errorf("query missing embeddings: %w", err)
	}
	defer rows.Close()

	var out []pendingMessage
	for rows.Next() {
		var p pendingMessage
		if err := rows.Scan(&p.ID, &p.Text); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BatchResult reports what an embedding batch job did.
type BatchResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// GenerateMissing embeds every message that lacks an embedding for the
// embedder's model. Idempotent: a second run processes nothing new. Failed
// batches are counted and skipped, not fatal.
func (s *Store) GenerateMissing(ctx context.Context, embedder Embedder, batchSize int, logger *zap.Logger) (BatchResult, error) {
	var result BatchResult
	if embedder == nil {
		return result, ErrEmbedderUnavailable
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pending, err := s.missing(ctx, embedder.Model())
	if err != nil {
		return result, err
	}
	if len(pending) == 0 {
		return result, nil
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			result.Errors += len(batch)
			logger.Warn("embedding batch failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}

		for i, p := range batch {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				result.Skipped++
				continue
			}
			if err := s.Put(ctx, p.ID, embedder.Model(), vectors[i]); err != nil {
				result.Errors++
				continue
			}
			result.Processed++
		}
	}

	logger.Info("embedding batch job done",
		zap.String("model", embedder.Model()),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))
	return result, nil
}

func encodeVector(values []float64) []byte {
	blob := make([]byte, len(values)*8)
	for i, v := range values {
		bits := math.Float64bits(v)
		for j := 0; j < 8; j++ {
			blob[i*8+j] = byte(bits >> (j * 8))
		}
	}
	return blob
}

func decodeVector(blob []byte) []float64 {
	if len(blob)%8 != 0 {
		return nil
	}
	values := make([]float64, len(blob)/8)
	for i := 0; i < len(values); i++ {
		bits := uint64(0)
		for j := 0; j < 8; j++ {
			bits |= uint64(blob[i*8+j]) << (j * 8)
		}
		values[i] = math.Float64frombits(bits)
	}
	return values
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
