package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/calebh/sift/internal/policy"
)

// EmailOptions configure an email priority query. Platforms defaults to
// the common email source names.
type EmailOptions struct {
	Platforms []string
	Weights   EmailWeights
	Blacklist *policy.Blacklist
	Limit     int
	Now       time.Time
}

var defaultEmailPlatforms = []string{"email", "gmail", "imap"}

// EmailPriority is one ranked email conversation.
type EmailPriority struct {
	ThreadID string         `json:"thread_id,omitempty"`
	Subject  string         `json:"subject"`
	Volume   int            `json:"volume"`
	LastAt   int64          `json:"last_at"`
	Signals  SubjectSignals `json:"signals"`
	Score    float64        `json:"score"`
}

// EmailPriorities ranks email conversations on subject signals and volume.
// Reply threading conflates outbound and inbound for email, so direction
// plays no part here.
func EmailPriorities(ctx context.Context, db *sql.DB, opts EmailOptions) ([]EmailPriority, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = defaultEmailPlatforms
	}

	placeholders := make([]string, len(platforms))
	args := make([]any, len(platforms))
	for i, p := range platforms {
		placeholders[i] = "?"
		args[i] = p
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(thread_id, ''), COALESCE(title, ''), created_at
		FROM messages
		WHERE source_platform IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("email messages: %w", err)
	}
	defer rows.Close()

	type emailAgg struct {
		subject string
		volume  int
		lastAt  int64
	}
	groups := map[string]*emailAgg{}

	for rows.Next() {
		var id, threadID, title string
		var createdAt int64
		if err := rows.Scan(&id, &threadID, &title, &createdAt); err != nil {
			continue
		}
		key := threadID
		if key == "" {
			// Unthreaded email ranks on its own.
			key = id
		}
		if opts.Blacklist != nil && opts.Blacklist.Contains(key) {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &emailAgg{}
			groups[key] = g
		}
		g.volume++
		if createdAt >= g.lastAt {
			g.lastAt = createdAt
			if title != "" {
				g.subject = title
			}
		}
		if g.subject == "" && title != "" {
			g.subject = title
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	priorities := make([]EmailPriority, 0, len(groups))
	for key, g := range groups {
		priorities = append(priorities, EmailPriority{
			ThreadID: key,
			Subject:  g.subject,
			Volume:   g.volume,
			LastAt:   g.lastAt,
			Signals:  DetectSubjectSignals(g.subject),
			Score:    EmailScore(g.subject, g.volume, g.lastAt, opts.Weights, now),
		})
	}

	sort.Slice(priorities, func(i, j int) bool {
		if priorities[i].Score != priorities[j].Score {
			return priorities[i].Score > priorities[j].Score
		}
		return priorities[i].ThreadID < priorities[j].ThreadID
	})
	if opts.Limit > 0 && len(priorities) > opts.Limit {
		priorities = priorities[:opts.Limit]
	}
	return priorities, nil
}
