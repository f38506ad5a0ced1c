package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wadigest/internal/entities"
	"wadigest/internal/interfaces"
)

func newTestDigest(store *fakeStore, sum *fakeSummarizer, channels ...*fakeChannel) *DigestService {
	chs := make([]interfaces.NotificationChannel, 0, len(channels))
	for _, ch := range channels {
		chs = append(chs, ch)
	}
	svc := NewDigestService(store, sum, fakeLinks{}, chs, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func TestDigestRun(t *testing.T) {
	store := newFakeStore()
	store.daily["g1"] = []entities.StoredMessage{
		{From: "5511999", Text: "bom dia", Timestamp: "2025-03-14T09:00:00Z"},
		{From: "5511888", Text: "bom dia!", Timestamp: "2025-03-14T09:01:00Z"},
	}
	store.names["g1"] = "Time de Vendas"
	store.purged = 3

	sum := &fakeSummarizer{summary: entities.Summary{Full: "# Resumo", Short: "Dia movimentado."}}
	ch := &fakeChannel{name: "teams"}
	svc := newTestDigest(store, sum, ch)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(store.summaries) != 1 {
		t.Fatalf("saved %d summaries", len(store.summaries))
	}
	saved := store.summaries[0]
	if saved.GroupName != "Time de Vendas" || saved.MessageCount != 2 {
		t.Errorf("summary = %+v", saved)
	}
	if saved.Date != testNow.Format("2006-01-02") {
		t.Errorf("Date = %q", saved.Date)
	}

	if len(ch.sends) != 1 {
		t.Fatalf("channel sends = %d", len(ch.sends))
	}
	if !strings.Contains(ch.sends[0], "Dia movimentado.") {
		t.Errorf("notification = %q", ch.sends[0])
	}
	if !strings.Contains(ch.sends[0], "https://example.com/resumo?id=sum-g1") {
		t.Errorf("notification missing share URL: %q", ch.sends[0])
	}

	if !strings.Contains(sum.inputs[0], "[2025-03-14T09:00:00Z] 5511999: bom dia") {
		t.Errorf("transcript = %q", sum.inputs[0])
	}
}

func TestDigestEmptyGroupIsSkipped(t *testing.T) {
	store := newFakeStore()
	store.daily["g1"] = nil

	sum := &fakeSummarizer{}
	svc := newTestDigest(store, sum)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sum.inputs) != 0 {
		t.Error("summarizer called for empty group")
	}
	if len(store.summaries) != 0 {
		t.Error("summary saved for empty group")
	}
}

func TestDigestGroupIsolation(t *testing.T) {
	store := newFakeStore()
	store.daily["ok"] = []entities.StoredMessage{{From: "a", Text: "x", Timestamp: "2025-03-14T09:00:00Z"}}
	store.daily["broken"] = []entities.StoredMessage{{From: "b", Text: "y", Timestamp: "2025-03-14T09:00:00Z"}}
	store.dailyErr["broken"] = errBoom

	sum := &fakeSummarizer{summary: entities.Summary{Full: "r", Short: "s"}}
	svc := newTestDigest(store, sum)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("one broken group must not fail the run: %v", err)
	}
	if len(store.summaries) != 1 {
		t.Errorf("saved %d summaries, want 1", len(store.summaries))
	}
}

func TestDigestAllGroupsFailing(t *testing.T) {
	store := newFakeStore()
	store.daily["g1"] = []entities.StoredMessage{{From: "a", Text: "x"}}
	sum := &fakeSummarizer{err: errBoom}
	svc := newTestDigest(store, sum)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error when every group fails")
	}
}

func TestDigestChannelsFailIndependently(t *testing.T) {
	store := newFakeStore()
	store.daily["g1"] = []entities.StoredMessage{{From: "a", Text: "x"}}

	sum := &fakeSummarizer{summary: entities.Summary{Full: "r", Short: "s"}}
	bad := &fakeChannel{name: "teams", err: errBoom}
	good := &fakeChannel{name: "telegram"}
	svc := newTestDigest(store, sum, bad, good)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("channel failure must not fail the run: %v", err)
	}
	if len(good.sends) != 1 {
		t.Errorf("healthy channel sends = %d", len(good.sends))
	}
}

func TestDigestPurgeErrorIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.daily["g1"] = []entities.StoredMessage{{From: "a", Text: "x"}}
	store.purgeErr = errBoom

	sum := &fakeSummarizer{summary: entities.Summary{Full: "r", Short: "s"}}
	svc := newTestDigest(store, sum)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("purge failure must not fail the run: %v", err)
	}
}

func TestDigestNoActiveGroups(t *testing.T) {
	svc := newTestDigest(newFakeStore(), &fakeSummarizer{})
	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestBuildTranscript(t *testing.T) {
	got := BuildTranscript([]entities.StoredMessage{
		{From: "a", Text: "primeira", Timestamp: "t1"},
		{From: "b", Text: "segunda", Timestamp: "t2"},
	})
	want := "[t1] a: primeira\n[t2] b: segunda"
	if got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}
