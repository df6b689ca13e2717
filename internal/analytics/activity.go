package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DayStats holds aggregated message statistics for a single day.
type DayStats struct {
	Date        string         `json:"date"` // YYYY-MM-DD
	Total       int            `json:"total"`
	ByPlatform  map[string]int `json:"by_platform"`
	ByDirection map[string]int `json:"by_direction"`
}

// Activity returns per-day message statistics for the given range, newest
// day first.
func Activity(ctx context.Context, db *sql.DB, start, end time.Time) ([]DayStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DATE(created_at, 'unixepoch', 'localtime') AS day,
		       source_platform, direction, COUNT(*)
		FROM messages
		WHERE created_at >= ? AND created_at < ?
		GROUP BY day, source_platform, direction
		ORDER BY day DESC
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	dayMap := make(map[string]*DayStats)
	var days []string

	for rows.Next() {
		var day, platform, direction string
		var count int
		if err := rows.Scan(&day, &platform, &direction, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}

		stats, exists := dayMap[day]
		if !exists {
			stats = &DayStats{
				Date:        day,
				ByPlatform:  make(map[string]int),
				ByDirection: make(map[string]int),
			}
			dayMap[day] = stats
			days = append(days, day)
		}
		stats.Total += count
		stats.ByPlatform[platform] += count
		if direction == "" {
			direction = "unset"
		}
		stats.ByDirection[direction] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	result := make([]DayStats, 0, len(days))
	for _, day := range days {
		result = append(result, *dayMap[day])
	}
	return result, nil
}

// DegreeStats describe the breadth of the user's recent network.
type DegreeStats struct {
	HeardFrom     int `json:"heard_from"`     // distinct identities with inbound messages
	Contacted     int `json:"contacted"`      // distinct identities in threads the user wrote to
	ActiveThreads int `json:"active_threads"` // threads with any activity
}

// NetworkDegree counts distinct counterpart identities active since the
// cutoff, grouped by normalized display name.
func NetworkDegree(ctx context.Context, db *sql.DB, selfNames []string, since time.Time) (DegreeStats, error) {
	var stats DegreeStats
	cutoff := since.Unix()

	heard, err := distinctAuthors(ctx, db, `
		SELECT DISTINCT author_name FROM messages
		WHERE direction = 'incoming' AND author_name != '' AND created_at >= ?
	`, cutoff, selfNames)
	if err != nil {
		return stats, err
	}
	stats.HeardFrom = len(heard)

	contacted, err := distinctAuthors(ctx, db, `
		SELECT DISTINCT author_name FROM messages
		WHERE author_name != '' AND created_at >= ?
		  AND thread_id IN (
			SELECT DISTINCT thread_id FROM messages
			WHERE direction = 'outgoing' AND thread_id IS NOT NULL AND created_at >= ?
		  )
	`, cutoff, selfNames, cutoff)
	if err != nil {
		return stats, err
	}
	stats.Contacted = len(contacted)

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT thread_id) FROM messages
		WHERE thread_id IS NOT NULL AND created_at >= ?
	`, cutoff).Scan(&stats.ActiveThreads)
	if err != nil {
		return stats, fmt.Errorf("active threads: %w", err)
	}

	return stats, nil
}

func distinctAuthors(ctx context.Context, db *sql.DB, query string, cutoff int64, selfNames []string, extraArgs ...any) (map[string]struct{}, error) {
	args := append([]any{cutoff}, extraArgs...)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct authors: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		key := NormalizeName(name)
		if key == "" || IsSelfName(name, selfNames) {
			continue
		}
		out[key] = struct{}{}
	}
	return out, rows.Err()
}
