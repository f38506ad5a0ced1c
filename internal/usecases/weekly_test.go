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

func TestComputeWeeklyStats(t *testing.T) {
	since := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	messages := []entities.StoredMessage{
		{From: "a", GroupID: "g1", Timestamp: "2025-03-10T09:15:00Z"},
		{From: "a", GroupID: "g1", Timestamp: "2025-03-10T09:45:00Z"},
		{From: "b", GroupID: "g1", Timestamp: "2025-03-11T14:00:00Z"},
		{From: "c", GroupID: "g2", Timestamp: "2025-03-11T14:30:00Z"},
		{From: "a", GroupID: "g2", Timestamp: "not-a-timestamp"},
	}

	stats := ComputeWeeklyStats(messages, since, until)

	if stats.TotalMessages != 5 {
		t.Errorf("TotalMessages = %d", stats.TotalMessages)
	}
	if stats.TotalGroups != 2 {
		t.Errorf("TotalGroups = %d", stats.TotalGroups)
	}
	if stats.WeekStart != "2025-03-07" || stats.WeekEnd != "2025-03-14" {
		t.Errorf("week bounds = %q / %q", stats.WeekStart, stats.WeekEnd)
	}

	// The malformed timestamp counts toward totals but not the day breakdown.
	var dayTotal int
	for _, day := range stats.MessagesByDay {
		dayTotal += day.Count
	}
	if dayTotal != 4 {
		t.Errorf("day breakdown total = %d, want 4", dayTotal)
	}
	if len(stats.MessagesByDay) != 2 || stats.MessagesByDay[0].Date != "2025-03-10" {
		t.Errorf("MessagesByDay = %+v", stats.MessagesByDay)
	}

	if stats.MessagesByGroup[0].GroupID != "g1" || stats.MessagesByGroup[0].Count != 3 {
		t.Errorf("MessagesByGroup = %+v", stats.MessagesByGroup)
	}

	if stats.TopParticipants[0].Phone != "a" || stats.TopParticipants[0].Count != 3 {
		t.Errorf("TopParticipants = %+v", stats.TopParticipants)
	}

	if stats.PeakHours[0].Hour != 14 && stats.PeakHours[0].Hour != 9 {
		t.Errorf("PeakHours = %+v", stats.PeakHours)
	}

	if stats.AvgMessagesPerDay != 2.5 {
		t.Errorf("AvgMessagesPerDay = %v", stats.AvgMessagesPerDay)
	}
	if stats.AvgMessagesPerGroup != 2.5 {
		t.Errorf("AvgMessagesPerGroup = %v", stats.AvgMessagesPerGroup)
	}
}

func TestComputeWeeklyStatsCapsLists(t *testing.T) {
	var messages []entities.StoredMessage
	for i := 0; i < 15; i++ {
		messages = append(messages, entities.StoredMessage{
			From:      string(rune('a' + i)),
			GroupID:   "g",
			Timestamp: "2025-03-10T09:00:00Z",
		})
	}
	stats := ComputeWeeklyStats(messages, time.Now(), time.Now())
	if len(stats.TopParticipants) != 10 {
		t.Errorf("TopParticipants len = %d, want 10", len(stats.TopParticipants))
	}
}

func TestWeeklyRun(t *testing.T) {
	store := newFakeStore()
	store.weekly = []entities.StoredMessage{
		{From: "a", GroupID: "g1", Text: "x", Timestamp: "2025-03-10T09:00:00Z"},
		{From: "b", GroupID: "g2", Text: "y", Timestamp: "2025-03-11T10:00:00Z"},
	}

	sum := &fakeSummarizer{summary: entities.Summary{Full: "tendência de alta"}}
	ch := &fakeChannel{name: "teams"}
	svc := NewWeeklyService(store, sum, fakeLinks{}, []interfaces.NotificationChannel{ch}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(store.reports) != 1 {
		t.Fatalf("saved %d reports", len(store.reports))
	}
	report := store.reports[0]
	if report.MessageCount != 2 || report.GroupCount != 2 {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(report.Content, "tendência de alta") {
		t.Error("insights missing from report content")
	}
	if !strings.Contains(report.Content, "Relatório Semanal") {
		t.Error("report header missing")
	}

	if len(ch.sends) != 1 {
		t.Fatalf("channel sends = %d", len(ch.sends))
	}
	if !strings.Contains(ch.sends[0], "https://example.com/semanal?id=week-1") {
		t.Errorf("notification missing link: %q", ch.sends[0])
	}
}

func TestWeeklyRunNoMessages(t *testing.T) {
	store := newFakeStore()
	sum := &fakeSummarizer{}
	svc := NewWeeklyService(store, sum, fakeLinks{}, nil, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.reports) != 0 {
		t.Error("report saved despite empty week")
	}
}

func TestWeeklyRunSummarizerFailureDegrades(t *testing.T) {
	store := newFakeStore()
	store.weekly = []entities.StoredMessage{{From: "a", GroupID: "g1", Timestamp: "2025-03-10T09:00:00Z"}}

	svc := NewWeeklyService(store, &fakeSummarizer{err: errBoom}, fakeLinks{}, nil, zerolog.Nop())
	svc.now = func() time.Time { return testNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("summarizer failure must not fail the run: %v", err)
	}
	if len(store.reports) != 1 {
		t.Fatal("stats-only report was not saved")
	}
	if strings.Contains(store.reports[0].Content, "## Análise") {
		t.Error("analysis section present without insights")
	}
}
