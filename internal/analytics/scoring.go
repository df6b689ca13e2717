package analytics

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Default thread priority weights.
const (
	defaultOutboundWeight    = 3.0
	defaultReciprocityWeight = 2.0
	defaultRecentWeight      = 1.5
	defaultVolumeWeight      = 1.0
	defaultRecentDays        = 7
	defaultThreadHalfLife    = 14.0
)

// ThreadWeights parameterize the thread priority formula.
type ThreadWeights struct {
	Outbound     float64
	Reciprocity  float64
	Recent       float64
	Volume       float64
	RecentDays   int
	HalfLifeDays float64
}

func (w ThreadWeights) withDefaults() ThreadWeights {
	if w.Outbound == 0 {
		w.Outbound = defaultOutboundWeight
	}
	if w.Reciprocity == 0 {
		w.Reciprocity = defaultReciprocityWeight
	}
	if w.Recent == 0 {
		w.Recent = defaultRecentWeight
	}
	if w.Volume == 0 {
		w.Volume = defaultVolumeWeight
	}
	if w.RecentDays <= 0 {
		w.RecentDays = defaultRecentDays
	}
	if w.HalfLifeDays <= 0 {
		w.HalfLifeDays = defaultThreadHalfLife
	}
	return w
}

// ThreadAggregate is the per-thread input to the scoring formula.
type ThreadAggregate struct {
	ParticipantCount int
	IsArchived       bool
	IsMuted          bool
	Total            int
	Outbound         int
	Inbound          int
	Recent           int
	LastMessageAt    int64
}

// ThreadScore computes the thread priority. Archived or muted threads score
// zero unconditionally. The 1/sqrt(participants) term dilutes group
// broadcast credit; decay is multiplicative so historical mass cannot
// outrank recent activity.
func ThreadScore(agg ThreadAggregate, w ThreadWeights, now time.Time) float64 {
	if agg.IsArchived || agg.IsMuted {
		return 0
	}
	w = w.withDefaults()

	participants := agg.ParticipantCount
	if participants < 1 {
		participants = 1
	}

	base := w.Outbound * float64(agg.Outbound) / math.Sqrt(float64(participants))
	if agg.Outbound > 0 && agg.Inbound > 0 {
		base += w.Reciprocity * math.Log10(float64(minInt(agg.Outbound, agg.Inbound))+1)
	}
	base += w.Recent * float64(agg.Recent)
	base += w.Volume * math.Log10(float64(agg.Total)+1)

	return base * halfLifeDecay(daysSince(agg.LastMessageAt, now), w.HalfLifeDays)
}

// Default contact priority weights.
const (
	defaultContactOutbound  = 2.0
	defaultContactVolume    = 1.0
	defaultContactRecency   = 1.0
	defaultContactDiversity = 0.5
)

// ContactWeights parameterize the contact priority formula.
type ContactWeights struct {
	Outbound  float64
	Volume    float64
	Recency   float64
	Diversity float64
}

func (w ContactWeights) withDefaults() ContactWeights {
	if w.Outbound == 0 {
		w.Outbound = defaultContactOutbound
	}
	if w.Volume == 0 {
		w.Volume = defaultContactVolume
	}
	if w.Recency == 0 {
		w.Recency = defaultContactRecency
	}
	if w.Diversity == 0 {
		w.Diversity = defaultContactDiversity
	}
	return w
}

// ContactAggregate is the per-identity input to the scoring formula.
// Credit is the group-diluted outbound credit plus per-message inbound
// credit accumulated by the aggregation pass.
type ContactAggregate struct {
	Credit      float64
	Messages    int
	ThreadCount int
	LastSeenAt  int64
}

// ContactScore combines outbound-weighted credit, log-volume, inverse
// recency, and thread diversity.
func ContactScore(agg ContactAggregate, w ContactWeights, now time.Time) float64 {
	w = w.withDefaults()
	score := w.Outbound * agg.Credit
	score += w.Volume * math.Log10(float64(agg.Messages)+1)
	score += w.Recency / (1 + daysSince(agg.LastSeenAt, now))
	score += w.Diversity * math.Log10(float64(agg.ThreadCount)+1)
	return score
}

// Default email priority weights. Email urgency ages faster than
// relationship warmth, hence the shorter half-life.
const (
	defaultEmailPerMessage = 0.5
	defaultEmailFinancial  = 2.0
	defaultEmailUrgency    = 1.5
	defaultEmailQuestion   = 1.0
	defaultEmailHalfLife   = 7.0
)

// EmailWeights parameterize the email priority formula.
type EmailWeights struct {
	PerMessage   float64
	Financial    float64
	Urgency      float64
	Question     float64
	HalfLifeDays float64
}

func (w EmailWeights) withDefaults() EmailWeights {
	if w.PerMessage == 0 {
		w.PerMessage = defaultEmailPerMessage
	}
	if w.Financial == 0 {
		w.Financial = defaultEmailFinancial
	}
	if w.Urgency == 0 {
		w.Urgency = defaultEmailUrgency
	}
	if w.Question == 0 {
		w.Question = defaultEmailQuestion
	}
	if w.HalfLifeDays <= 0 {
		w.HalfLifeDays = defaultEmailHalfLife
	}
	return w
}

var financialKeywords = []string{
	"invoice", "payment", "bill", "billing", "receipt", "statement",
	"due", "overdue", "refund", "tax", "balance", "charge",
}

var urgencyKeywords = []string{
	"urgent", "asap", "immediately", "action required", "reminder",
	"deadline", "expir", "final notice", "last chance", "today", "tomorrow",
}

// SubjectSignals are the content signals detected in an email subject.
type SubjectSignals struct {
	Financial bool
	Urgency   bool
	Question  bool
}

// DetectSubjectSignals scans a subject line for keyword classes. Emails lack
// a reliable direction signal, so the subject carries the scoring weight.
func DetectSubjectSignals(subject string) SubjectSignals {
	lower := strings.ToLower(subject)
	var sig SubjectSignals
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			sig.Financial = true
			break
		}
	}
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			sig.Urgency = true
			break
		}
	}
	sig.Question = strings.Contains(subject, "?")
	return sig
}

// EmailScore computes an email thread's priority from its volume and
// subject signals, decayed with the email half-life.
func EmailScore(subject string, volume int, lastAt int64, w EmailWeights, now time.Time) float64 {
	w = w.withDefaults()

	base := float64(volume) * w.PerMessage
	sig := DetectSubjectSignals(subject)
	if sig.Financial {
		base += w.Financial
	}
	if sig.Urgency {
		base += w.Urgency
	}
	if sig.Question {
		base += w.Question
	}

	return base * halfLifeDecay(daysSince(lastAt, now), w.HalfLifeDays)
}

// halfLifeDecay is the multiplicative 0.5^(elapsed/halfLife) factor. Always
// positive, so decay approaches but never reaches zero.
func halfLifeDecay(days, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1
	}
	if days < 0 {
		days = 0
	}
	return math.Pow(0.5, days/halfLifeDays)
}

func daysSince(unixSec int64, now time.Time) float64 {
	if unixSec <= 0 {
		return 0
	}
	d := now.Sub(time.Unix(unixSec, 0)).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// NormalizeName produces the best-effort cross-platform grouping key:
// lowercase, punctuation stripped, whitespace collapsed. Lossy; callers
// must not treat it as exact identity resolution.
func NormalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// IsSelfName reports whether a display name matches one of the user's own
// names: case-insensitive, punctuation-stripped substring match in either
// direction. A heuristic, not identity resolution.
func IsSelfName(name string, selfNames []string) bool {
	n := NormalizeName(name)
	if n == "" {
		return false
	}
	for _, self := range selfNames {
		s := NormalizeName(self)
		if s == "" {
			continue
		}
		if strings.Contains(n, s) || strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
