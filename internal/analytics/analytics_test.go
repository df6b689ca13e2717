package analytics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/calebh/sift/internal/model"
	"github.com/calebh/sift/internal/policy"
	"github.com/calebh/sift/internal/store"
	"github.com/calebh/sift/internal/testutil"
)

// ingest writes a batch through the event store so the analytics queries see
// the same projections production does.
func ingest(t *testing.T, db *sql.DB, msgs []model.Message) {
	t.Helper()
	s := store.New(db)
	result, err := s.AppendMessages(context.Background(), msgs)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("ingest rejected %d messages", result.Errors)
	}
}

func chat(threadID, platformID, author string, dir model.Direction, at int64) model.Message {
	return model.Message{
		ThreadID:  threadID,
		Content:   "hello",
		Author:    model.Author{Name: author},
		Source:    model.Source{Platform: "signal", PlatformID: platformID},
		Direction: dir,
		CreatedAt: at,
	}
}

func TestThreadPrioritiesRanking(t *testing.T) {
	db := testutil.OpenTestDB(t)
	s := store.New(db)
	ctx := context.Background()
	now := scoringNow

	var msgs []model.Message
	// Active DM with traffic both ways.
	for i := 0; i < 5; i++ {
		msgs = append(msgs,
			chat("dm", "dm-out-"+string(rune('a'+i)), "Me", model.DirectionOutgoing, daysAgo(1)),
			chat("dm", "dm-in-"+string(rune('a'+i)), "Ana", model.DirectionIncoming, daysAgo(1)),
		)
	}
	// Same traffic in a 50-person group.
	for i := 0; i < 5; i++ {
		msgs = append(msgs,
			chat("group", "g-out-"+string(rune('a'+i)), "Me", model.DirectionOutgoing, daysAgo(1)),
			chat("group", "g-in-"+string(rune('a'+i)), "Bob", model.DirectionIncoming, daysAgo(1)),
		)
	}
	// Busy muted thread and a blacklisted one.
	for i := 0; i < 20; i++ {
		msgs = append(msgs, chat("muted", "m-"+string(rune('a'+i)), "Spam", model.DirectionIncoming, daysAgo(0)))
	}
	msgs = append(msgs, chat("excluded", "x-1", "Noise", model.DirectionIncoming, daysAgo(0)))
	ingest(t, db, msgs)

	for _, th := range []model.Thread{
		{ID: "dm", Type: model.ThreadDM, ParticipantCount: 2},
		{ID: "group", Type: model.ThreadGroup, ParticipantCount: 50},
	} {
		if err := s.UpsertThread(ctx, th); err != nil {
			t.Fatalf("upsert thread: %v", err)
		}
	}
	if err := s.MuteThread(ctx, "muted", true); err != nil {
		t.Fatalf("mute: %v", err)
	}

	blacklistPath := filepath.Join(t.TempDir(), "blacklist.json")
	if err := os.WriteFile(blacklistPath, []byte(`{"threads":[{"thread_id":"excluded"}]}`), 0o644); err != nil {
		t.Fatalf("write blacklist: %v", err)
	}

	priorities, err := ThreadPriorities(ctx, db, ThreadOptions{
		Blacklist: policy.LoadBlacklist(blacklistPath),
		Now:       now,
	})
	if err != nil {
		t.Fatalf("priorities: %v", err)
	}

	if len(priorities) != 3 {
		t.Fatalf("expected 3 ranked threads (blacklist removes one), got %d", len(priorities))
	}
	if priorities[0].Thread.ID != "dm" || priorities[1].Thread.ID != "group" {
		t.Fatalf("DM must outrank the large group: got %s then %s",
			priorities[0].Thread.ID, priorities[1].Thread.ID)
	}
	if priorities[2].Thread.ID != "muted" || priorities[2].Score != 0 {
		t.Fatalf("muted thread must rank last at zero, got %s score %f",
			priorities[2].Thread.ID, priorities[2].Score)
	}
	for _, p := range priorities {
		if p.Thread.ID == "excluded" {
			t.Fatal("blacklisted thread leaked into the ranking")
		}
	}
	if priorities[0].Tier.Tier != policy.TierEngaged {
		t.Fatalf("replied-to DM should classify engaged, got %s", priorities[0].Tier.Tier)
	}
	if priorities[2].Tier.Tier != policy.TierMonitor {
		t.Fatalf("never-replied busy thread should classify monitor, got %s", priorities[2].Tier.Tier)
	}
}

func TestContactPrioritiesGroupCredit(t *testing.T) {
	db := testutil.OpenTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	ingest(t, db, []model.Message{
		chat("g1", "1", "Ana", model.DirectionIncoming, daysAgo(2)),
		chat("g1", "2", "Ana", model.DirectionIncoming, daysAgo(2)),
		chat("g1", "3", "Bob", model.DirectionIncoming, daysAgo(2)),
		chat("g1", "4", "Cal Harris", model.DirectionOutgoing, daysAgo(1)),
		chat("g1", "5", "Cal Harris", model.DirectionOutgoing, daysAgo(1)),
		chat("g1", "6", "Cal Harris", model.DirectionOutgoing, daysAgo(1)),
		chat("g1", "7", "Cal Harris", model.DirectionOutgoing, daysAgo(1)),
	})
	if err := s.UpsertThread(ctx, model.Thread{ID: "g1", Type: model.ThreadGroup, ParticipantCount: 4}); err != nil {
		t.Fatalf("upsert thread: %v", err)
	}

	priorities, err := ContactPriorities(ctx, db, ContactOptions{
		SelfNames: []string{"Cal Harris"},
		Now:       scoringNow,
	})
	if err != nil {
		t.Fatalf("priorities: %v", err)
	}

	if len(priorities) != 2 {
		t.Fatalf("self must not appear as a contact: got %d identities", len(priorities))
	}
	if priorities[0].Name != "ana" || priorities[1].Name != "bob" {
		t.Fatalf("expected ana then bob, got %s then %s", priorities[0].Name, priorities[1].Name)
	}

	// Four outbound messages split across four participants credit each
	// counterpart 4/4 = 1 on top of their inbound count.
	if ana := priorities[0]; ana.Credit != 3 || ana.Inbound != 2 {
		t.Fatalf("ana: expected credit 3 (2 inbound + 1 outbound share), got %+v", ana)
	}
	if bob := priorities[1]; bob.Credit != 2 || bob.Inbound != 1 {
		t.Fatalf("bob: expected credit 2 (1 inbound + 1 outbound share), got %+v", bob)
	}

	// Outbound presence in the shared thread marks both engaged.
	for _, p := range priorities {
		if p.Tier.Tier != policy.TierEngaged {
			t.Fatalf("%s: expected engaged, got %s", p.Name, p.Tier.Tier)
		}
	}
}

func TestContactPrioritiesMergesAcrossPlatforms(t *testing.T) {
	db := testutil.OpenTestDB(t)

	ingest(t, db, []model.Message{
		{
			ThreadID:  "t1",
			Content:   "hi",
			Author:    model.Author{Name: "John Smith"},
			Source:    model.Source{Platform: "signal", PlatformID: "1"},
			Direction: model.DirectionIncoming,
			CreatedAt: daysAgo(1),
		},
		{
			ThreadID:  "t2",
			Content:   "hi",
			Author:    model.Author{Name: "john.smith"},
			Source:    model.Source{Platform: "email", PlatformID: "2"},
			Direction: model.DirectionIncoming,
			CreatedAt: daysAgo(1),
		},
		{
			ThreadID:  "t3",
			Content:   "hi",
			Author:    model.Author{Name: "JOHN  SMITH"},
			Source:    model.Source{Platform: "slack", PlatformID: "3"},
			Direction: model.DirectionIncoming,
			CreatedAt: daysAgo(1),
		},
	})

	priorities, err := ContactPriorities(context.Background(), db, ContactOptions{Now: scoringNow})
	if err != nil {
		t.Fatalf("priorities: %v", err)
	}

	// "John Smith" and "JOHN  SMITH" normalize together; "john.smith" does
	// not (the dot is stripped without a space).
	if len(priorities) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(priorities))
	}
	if priorities[0].Name != "john smith" || priorities[0].ThreadCount != 2 {
		t.Fatalf("expected merged john smith across 2 threads, got %+v", priorities[0])
	}
}

func TestEmailPriorities(t *testing.T) {
	db := testutil.OpenTestDB(t)

	email := func(threadID, platformID, subject string, at int64) model.Message {
		return model.Message{
			ThreadID:  threadID,
			Title:     subject,
			Content:   "body",
			Source:    model.Source{Platform: "email", PlatformID: platformID},
			CreatedAt: at,
		}
	}

	var msgs []model.Message
	msgs = append(msgs, email("invoice", "i-1", "Invoice overdue - action required", daysAgo(1)))
	for i := 0; i < 6; i++ {
		msgs = append(msgs, email("news", "n-"+string(rune('a'+i)), "Weekly digest", daysAgo(1)))
	}
	// Unthreaded email ranks on its own message id.
	msgs = append(msgs, model.Message{
		Title:     "Quick question?",
		Content:   "body",
		Source:    model.Source{Platform: "email", PlatformID: "solo-1"},
		CreatedAt: daysAgo(1),
	})
	// Chat traffic is invisible to the email ranking.
	msgs = append(msgs, chat("dm", "c-1", "Ana", model.DirectionIncoming, daysAgo(1)))
	ingest(t, db, msgs)

	priorities, err := EmailPriorities(context.Background(), db, EmailOptions{Now: scoringNow})
	if err != nil {
		t.Fatalf("priorities: %v", err)
	}

	if len(priorities) != 3 {
		t.Fatalf("expected 3 email groups, got %d", len(priorities))
	}
	if priorities[0].ThreadID != "invoice" {
		t.Fatalf("urgent invoice must outrank the newsletter pile, got %s first", priorities[0].ThreadID)
	}
	if !priorities[0].Signals.Financial || !priorities[0].Signals.Urgency {
		t.Fatalf("invoice signals not detected: %+v", priorities[0].Signals)
	}
	if got := priorities[1].ThreadID; got != "news" {
		t.Fatalf("expected newsletter thread second, got %s", got)
	}

	var sawSolo bool
	for _, p := range priorities {
		if p.Subject == "Quick question?" {
			sawSolo = true
			if p.Volume != 1 || !p.Signals.Question {
				t.Fatalf("unthreaded email mis-aggregated: %+v", p)
			}
		}
	}
	if !sawSolo {
		t.Fatal("unthreaded email missing from ranking")
	}
}

func TestActivity(t *testing.T) {
	db := testutil.OpenTestDB(t)

	ingest(t, db, []model.Message{
		chat("t1", "1", "Ana", model.DirectionIncoming, daysAgo(1)),
		chat("t1", "2", "Me", model.DirectionOutgoing, daysAgo(1)),
		chat("t1", "3", "Ana", model.DirectionIncoming, daysAgo(5)),
		{
			ThreadID:  "t1",
			Content:   "joined",
			Kind:      model.KindSystem,
			Source:    model.Source{Platform: "signal", PlatformID: "4"},
			CreatedAt: daysAgo(5),
		},
	})

	stats, err := Activity(context.Background(), db, scoringNow.AddDate(0, 0, -30), scoringNow)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 active days, got %d", len(stats))
	}
	// Newest day first.
	if stats[0].Date <= stats[1].Date {
		t.Fatalf("days out of order: %s then %s", stats[0].Date, stats[1].Date)
	}

	var total int
	directions := map[string]int{}
	for _, day := range stats {
		total += day.Total
		for dir, n := range day.ByDirection {
			directions[dir] += n
		}
	}
	if total != 4 {
		t.Fatalf("expected 4 messages across the range, got %d", total)
	}
	if directions["incoming"] != 2 || directions["outgoing"] != 1 || directions["unset"] != 1 {
		t.Fatalf("direction rollup wrong: %v", directions)
	}
}

func TestNetworkDegree(t *testing.T) {
	db := testutil.OpenTestDB(t)

	ingest(t, db, []model.Message{
		chat("t1", "1", "Ana", model.DirectionIncoming, daysAgo(1)),
		chat("t1", "2", "Cal Harris", model.DirectionOutgoing, daysAgo(1)),
		chat("t2", "3", "Bob", model.DirectionIncoming, daysAgo(2)),
		// Old traffic outside the window.
		chat("t3", "4", "Zoe", model.DirectionIncoming, daysAgo(90)),
	})

	stats, err := NetworkDegree(context.Background(), db, []string{"Cal Harris"}, scoringNow.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("degree: %v", err)
	}
	if stats.HeardFrom != 2 {
		t.Fatalf("expected 2 recent inbound identities, got %d", stats.HeardFrom)
	}
	if stats.Contacted != 1 {
		t.Fatalf("only ana shares a thread the user wrote to, got %d", stats.Contacted)
	}
	if stats.ActiveThreads != 2 {
		t.Fatalf("expected 2 active threads in the window, got %d", stats.ActiveThreads)
	}
}
