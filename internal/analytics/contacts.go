package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/calebh/sift/internal/policy"
)

// ContactOptions configure a contact priority query. SelfNames is the
// caller-supplied list of the user's own names; matching against it is a
// normalized-substring heuristic, not exact identity resolution.
type ContactOptions struct {
	SelfNames []string
	Weights   ContactWeights
	Tiers     policy.TierConfig
	Blacklist *policy.Blacklist
	Limit     int
	Now       time.Time
}

// ContactPriority is one ranked cross-platform identity.
type ContactPriority struct {
	Name         string              `json:"name"`
	DisplayName  string              `json:"display_name"`
	Credit       float64             `json:"credit"`
	Inbound      int                 `json:"inbound"`
	OutboundSeen int                 `json:"outbound_seen"`
	Messages     int                 `json:"messages"`
	ThreadCount  int                 `json:"thread_count"`
	LastSeenAt   int64               `json:"last_seen_at"`
	Tier         policy.TierMetadata `json:"tier"`
	Score        float64             `json:"score"`
}

type inboundGroup struct {
	threadID string
	author   string
	count    int
	lastAt   int64
}

// ContactPriorities ranks counterpart identities. Inbound messages credit
// their author. Outbound messages distribute credit across every non-self
// author observed in the thread, each weighted 1/participant_count, so one
// sent group message fractionally credits all participants.
func ContactPriorities(ctx context.Context, db *sql.DB, opts ContactOptions) ([]ContactPriority, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	inbound, err := loadInboundGroups(ctx, db)
	if err != nil {
		return nil, err
	}
	outboundByThread, err := loadOutboundCounts(ctx, db)
	if err != nil {
		return nil, err
	}
	participants, err := loadParticipantCounts(ctx, db)
	if err != nil {
		return nil, err
	}

	type contactState struct {
		displayName  string
		credit       float64
		inbound      int
		outboundSeen int
		messages     int
		threads      map[string]struct{}
		lastSeen     int64
	}
	contacts := map[string]*contactState{}
	authorsByThread := map[string][]string{}

	get := func(key, display string) *contactState {
		c, ok := contacts[key]
		if !ok {
			c = &contactState{displayName: display, threads: map[string]struct{}{}}
			contacts[key] = c
		}
		return c
	}

	for _, g := range inbound {
		if opts.Blacklist != nil && opts.Blacklist.Contains(g.threadID) {
			continue
		}
		key := NormalizeName(g.author)
		if key == "" || IsSelfName(g.author, opts.SelfNames) {
			continue
		}
		c := get(key, g.author)
		c.credit += float64(g.count)
		c.inbound += g.count
		c.messages += g.count
		if g.threadID != "" {
			c.threads[g.threadID] = struct{}{}
			authorsByThread[g.threadID] = appendUnique(authorsByThread[g.threadID], key)
		}
		if g.lastAt > c.lastSeen {
			c.lastSeen = g.lastAt
		}
	}

	for threadID, out := range outboundByThread {
		if opts.Blacklist != nil && opts.Blacklist.Contains(threadID) {
			continue
		}
		authors := authorsByThread[threadID]
		if len(authors) == 0 {
			continue
		}
		pc := participants[threadID]
		if pc < 1 {
			pc = 1
		}
		share := float64(out.count) / float64(pc)
		for _, key := range authors {
			c := contacts[key]
			if c == nil {
				continue
			}
			c.credit += share
			c.outboundSeen += out.count
			if out.lastAt > c.lastSeen {
				c.lastSeen = out.lastAt
			}
		}
	}

	priorities := make([]ContactPriority, 0, len(contacts))
	for key, c := range contacts {
		p := ContactPriority{
			Name:         key,
			DisplayName:  c.displayName,
			Credit:       c.credit,
			Inbound:      c.inbound,
			OutboundSeen: c.outboundSeen,
			Messages:     c.messages,
			ThreadCount:  len(c.threads),
			LastSeenAt:   c.lastSeen,
		}
		p.Tier = policy.Classify(c.outboundSeen, c.inbound, opts.Tiers)
		p.Score = ContactScore(ContactAggregate{
			Credit:      c.credit,
			Messages:    c.messages,
			ThreadCount: len(c.threads),
			LastSeenAt:  c.lastSeen,
		}, opts.Weights, now) * p.Tier.Multiplier
		priorities = append(priorities, p)
	}

	sort.Slice(priorities, func(i, j int) bool {
		if priorities[i].Score != priorities[j].Score {
			return priorities[i].Score > priorities[j].Score
		}
		return priorities[i].Name < priorities[j].Name
	})
	if opts.Limit > 0 && len(priorities) > opts.Limit {
		priorities = priorities[:opts.Limit]
	}
	return priorities, nil
}

func loadInboundGroups(ctx context.Context, db *sql.DB) ([]inboundGroup, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(thread_id, ''), author_name, COUNT(*), MAX(created_at)
		FROM messages
		WHERE direction = 'incoming' AND author_name != ''
		GROUP BY thread_id, author_name
	`)
	if err != nil {
		return nil, fmt.Errorf("inbound groups: %w", err)
	}
	defer rows.Close()

	var out []inboundGroup
	for rows.Next() {
		var g inboundGroup
		if err := rows.Scan(&g.threadID, &g.author, &g.count, &g.lastAt); err != nil {
			continue
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type outboundCount struct {
	count  int
	lastAt int64
}

func loadOutboundCounts(ctx context.Context, db *sql.DB) (map[string]outboundCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT thread_id, COUNT(*), MAX(created_at)
		FROM messages
		WHERE direction = 'outgoing' AND thread_id IS NOT NULL
		GROUP BY thread_id
	`)
	if err != nil {
		return nil, fmt.Errorf("outbound counts: %w", err)
	}
	defer rows.Close()

	out := map[string]outboundCount{}
	for rows.Next() {
		var threadID string
		var c outboundCount
		if err := rows.Scan(&threadID, &c.count, &c.lastAt); err != nil {
			continue
		}
		out[threadID] = c
	}
	return out, rows.Err()
}

func loadParticipantCounts(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, participant_count FROM threads`)
	if err != nil {
		return nil, fmt.Errorf("participant counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id string
		var pc int
		if err := rows.Scan(&id, &pc); err != nil {
			continue
		}
		out[id] = pc
	}
	return out, rows.Err()
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
