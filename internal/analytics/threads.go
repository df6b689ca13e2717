package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/calebh/sift/internal/model"
	"github.com/calebh/sift/internal/policy"
)

// ThreadOptions configure a thread priority query.
type ThreadOptions struct {
	Weights   ThreadWeights
	Tiers     policy.TierConfig
	Blacklist *policy.Blacklist
	Limit     int
	Now       time.Time
}

// ThreadPriority is one ranked thread.
type ThreadPriority struct {
	Thread        model.Thread        `json:"thread"`
	Total         int                 `json:"total"`
	Outbound      int                 `json:"outbound"`
	Inbound       int                 `json:"inbound"`
	Recent        int                 `json:"recent"`
	LastMessageAt int64               `json:"last_message_at"`
	Tier          policy.TierMetadata `json:"tier"`
	Score         float64             `json:"score"`
}

// ThreadPriorities ranks threads by priority. Blacklisted threads are
// excluded before ranking; archived or muted threads score zero.
func ThreadPriorities(ctx context.Context, db *sql.DB, opts ThreadOptions) ([]ThreadPriority, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	weights := opts.Weights.withDefaults()
	recentCutoff := now.AddDate(0, 0, -weights.RecentDays).Unix()

	rows, err := db.QueryContext(ctx, `
		SELECT t.id, t.title, t.type, t.platform, t.participant_count,
		       t.is_archived, t.is_muted,
		       COUNT(m.id) AS total,
		       SUM(CASE WHEN m.direction = 'outgoing' THEN 1 ELSE 0 END) AS outbound,
		       SUM(CASE WHEN m.direction = 'incoming' THEN 1 ELSE 0 END) AS inbound,
		       SUM(CASE WHEN m.created_at >= ? THEN 1 ELSE 0 END) AS recent,
		       MAX(m.created_at) AS last_at
		FROM threads t
		JOIN messages m ON m.thread_id = t.id
		GROUP BY t.id
	`, recentCutoff)
	if err != nil {
		return nil, fmt.Errorf("thread aggregates: %w", err)
	}
	defer rows.Close()

	var priorities []ThreadPriority
	for rows.Next() {
		var p ThreadPriority
		var title, typ, platform sql.NullString
		var archived, muted int
		var lastAt sql.NullInt64
		if err := rows.Scan(&p.Thread.ID, &title, &typ, &platform, &p.Thread.ParticipantCount,
			&archived, &muted, &p.Total, &p.Outbound, &p.Inbound, &p.Recent, &lastAt); err != nil {
			continue
		}
		if opts.Blacklist != nil && opts.Blacklist.Contains(p.Thread.ID) {
			continue
		}
		p.Thread.Title = title.String
		p.Thread.Type = model.ThreadType(typ.String)
		p.Thread.Platform = platform.String
		p.Thread.IsArchived = archived == 1
		p.Thread.IsMuted = muted == 1
		p.LastMessageAt = lastAt.Int64

		p.Tier = policy.Classify(p.Outbound, p.Inbound, opts.Tiers)
		p.Score = ThreadScore(ThreadAggregate{
			ParticipantCount: p.Thread.ParticipantCount,
			IsArchived:       p.Thread.IsArchived,
			IsMuted:          p.Thread.IsMuted,
			Total:            p.Total,
			Outbound:         p.Outbound,
			Inbound:          p.Inbound,
			Recent:           p.Recent,
			LastMessageAt:    p.LastMessageAt,
		}, weights, now) * p.Tier.Multiplier

		priorities = append(priorities, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(priorities, func(i, j int) bool {
		if priorities[i].Score != priorities[j].Score {
			return priorities[i].Score > priorities[j].Score
		}
		return priorities[i].Thread.ID < priorities[j].Thread.ID
	})
	if opts.Limit > 0 && len(priorities) > opts.Limit {
		priorities = priorities[:opts.Limit]
	}
	return priorities, nil
}
