package analytics

import (
	"math"
	"testing"
	"time"
)

var scoringNow = time.Unix(1_750_000_000, 0)

func daysAgo(n int) int64 {
	return scoringNow.Add(-time.Duration(n) * 24 * time.Hour).Unix()
}

func TestThreadScoreArchivedMutedZero(t *testing.T) {
	agg := ThreadAggregate{
		ParticipantCount: 2,
		Total:            100,
		Outbound:         50,
		Inbound:          50,
		Recent:           20,
		LastMessageAt:    daysAgo(0),
	}

	if score := ThreadScore(agg, ThreadWeights{}, scoringNow); score <= 0 {
		t.Fatalf("active thread should score positive, got %f", score)
	}

	agg.IsArchived = true
	if score := ThreadScore(agg, ThreadWeights{}, scoringNow); score != 0 {
		t.Fatalf("archived thread must score exactly zero, got %f", score)
	}

	agg.IsArchived = false
	agg.IsMuted = true
	if score := ThreadScore(agg, ThreadWeights{}, scoringNow); score != 0 {
		t.Fatalf("muted thread must score exactly zero, got %f", score)
	}
}

func TestThreadScoreParticipantDilution(t *testing.T) {
	base := ThreadAggregate{
		Total:         20,
		Outbound:      10,
		Inbound:       10,
		Recent:        5,
		LastMessageAt: daysAgo(0),
	}

	dm := base
	dm.ParticipantCount = 2
	group := base
	group.ParticipantCount = 50

	dmScore := ThreadScore(dm, ThreadWeights{}, scoringNow)
	groupScore := ThreadScore(group, ThreadWeights{}, scoringNow)
	if dmScore <= groupScore {
		t.Fatalf("identical activity in a 50-person group must rank below a DM: dm=%f group=%f", dmScore, groupScore)
	}

	// The outbound term specifically shrinks by sqrt(participants).
	w := ThreadWeights{Outbound: 1, Reciprocity: 1e-9, Recent: 1e-9, Volume: 1e-9}
	dmOut := ThreadScore(ThreadAggregate{ParticipantCount: 1, Outbound: 10, Total: 10, LastMessageAt: daysAgo(0)}, w, scoringNow)
	groupOut := ThreadScore(ThreadAggregate{ParticipantCount: 25, Outbound: 10, Total: 10, LastMessageAt: daysAgo(0)}, w, scoringNow)
	if ratio := dmOut / groupOut; math.Abs(ratio-5) > 0.001 {
		t.Fatalf("expected sqrt(25)=5x dilution ratio, got %f", ratio)
	}
}

func TestThreadScoreHalfLifeDecay(t *testing.T) {
	agg := ThreadAggregate{
		ParticipantCount: 2,
		Total:            20,
		Outbound:         10,
		Inbound:          10,
		Recent:           5,
	}

	fresh := agg
	fresh.LastMessageAt = daysAgo(0)
	stale := agg
	stale.LastMessageAt = daysAgo(14)

	freshScore := ThreadScore(fresh, ThreadWeights{}, scoringNow)
	staleScore := ThreadScore(stale, ThreadWeights{}, scoringNow)

	// One default half-life elapsed: exactly half the score.
	if math.Abs(staleScore-freshScore/2) > 1e-9 {
		t.Fatalf("expected half the fresh score at 14 days, fresh=%f stale=%f", freshScore, staleScore)
	}

	older := agg
	older.LastMessageAt = daysAgo(60)
	if olderScore := ThreadScore(older, ThreadWeights{}, scoringNow); olderScore >= staleScore || olderScore <= 0 {
		t.Fatalf("decay must be monotonic and positive: 14d=%f 60d=%f", staleScore, olderScore)
	}
}

func TestThreadScoreReciprocityGate(t *testing.T) {
	w := ThreadWeights{Outbound: 1e-9, Reciprocity: 10, Recent: 1e-9, Volume: 1e-9}

	oneSided := ThreadScore(ThreadAggregate{ParticipantCount: 2, Outbound: 20, Total: 20, LastMessageAt: daysAgo(0)}, w, scoringNow)
	mutual := ThreadScore(ThreadAggregate{ParticipantCount: 2, Outbound: 10, Inbound: 10, Total: 20, LastMessageAt: daysAgo(0)}, w, scoringNow)

	// Reciprocity needs traffic in both directions.
	if mutual <= oneSided*2 {
		t.Fatalf("mutual thread should be dominated by the reciprocity term: one-sided=%f mutual=%f", oneSided, mutual)
	}
}

func TestContactScoreMonotonicInCredit(t *testing.T) {
	low := ContactScore(ContactAggregate{Credit: 1, Messages: 10, ThreadCount: 2, LastSeenAt: daysAgo(1)}, ContactWeights{}, scoringNow)
	high := ContactScore(ContactAggregate{Credit: 5, Messages: 10, ThreadCount: 2, LastSeenAt: daysAgo(1)}, ContactWeights{}, scoringNow)
	if high <= low {
		t.Fatalf("more credit must score higher: %f vs %f", low, high)
	}

	recent := ContactScore(ContactAggregate{Credit: 1, Messages: 10, ThreadCount: 2, LastSeenAt: daysAgo(0)}, ContactWeights{}, scoringNow)
	stale := ContactScore(ContactAggregate{Credit: 1, Messages: 10, ThreadCount: 2, LastSeenAt: daysAgo(90)}, ContactWeights{}, scoringNow)
	if recent <= stale {
		t.Fatalf("recency must boost the score: recent=%f stale=%f", recent, stale)
	}
}

func TestDetectSubjectSignals(t *testing.T) {
	tests := []struct {
		subject string
		want    SubjectSignals
	}{
		{"Invoice #42 from Acme", SubjectSignals{Financial: true}},
		{"URGENT: server down", SubjectSignals{Urgency: true}},
		{"Reminder: payment due tomorrow", SubjectSignals{Financial: true, Urgency: true}},
		{"Are you coming?", SubjectSignals{Question: true}},
		{"Your subscription expires soon", SubjectSignals{Urgency: true}},
		{"Weekly digest", SubjectSignals{}},
		{"", SubjectSignals{}},
	}
	for _, tt := range tests {
		if got := DetectSubjectSignals(tt.subject); got != tt.want {
			t.Errorf("DetectSubjectSignals(%q) = %+v, want %+v", tt.subject, got, tt.want)
		}
	}
}

func TestEmailScoreSignalsBeatVolume(t *testing.T) {
	lastAt := daysAgo(0)

	invoice := EmailScore("Invoice overdue - action required", 1, lastAt, EmailWeights{}, scoringNow)
	newsletter := EmailScore("Weekly digest", 6, lastAt, EmailWeights{}, scoringNow)
	if invoice <= newsletter {
		t.Fatalf("one urgent invoice must outrank six newsletters: invoice=%f newsletter=%f", invoice, newsletter)
	}

	// Email decay uses the shorter half-life: 7 days halves the score.
	fresh := EmailScore("Invoice", 2, daysAgo(0), EmailWeights{}, scoringNow)
	week := EmailScore("Invoice", 2, daysAgo(7), EmailWeights{}, scoringNow)
	if math.Abs(week-fresh/2) > 1e-9 {
		t.Fatalf("expected half score after 7 days: fresh=%f week=%f", fresh, week)
	}
}

func TestHalfLifeDecayEdges(t *testing.T) {
	if halfLifeDecay(-5, 14) != 1 {
		t.Fatal("future timestamps must not amplify")
	}
	if halfLifeDecay(0, 14) != 1 {
		t.Fatal("zero elapsed means no decay")
	}
	if halfLifeDecay(1000, 14) <= 0 {
		t.Fatal("decay must stay positive")
	}
	if halfLifeDecay(10, 0) != 1 {
		t.Fatal("zero half-life disables decay")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Smith", "john smith"},
		{"  John   SMITH  ", "john smith"},
		{"john.smith", "johnsmith"},
		{"J'ohn-Smith", "johnsmith"},
		{"Ana María", "ana maría"},
		{"+1 (555) 000-1111", "1 555 0001111"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSelfName(t *testing.T) {
	selfNames := []string{"Cal Harris", "cal"}
	tests := []struct {
		name string
		want bool
	}{
		{"Cal Harris", true},
		{"cal harris", true},
		{"Cal", true},
		{"Cal Harris (work)", true},
		// Containment runs both ways: "cal" sits inside "calvin" and
		// "harris" inside "cal harris".
		{"Calvin", true},
		{"Harris", true},
		{"Ana", false},
		{"Bob Harrison", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSelfName(tt.name, selfNames); got != tt.want {
			t.Errorf("IsSelfName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
