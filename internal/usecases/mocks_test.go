package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"wadigest/internal/entities"
)

// fakeStore is an in-memory MessageStore used across the usecase tests.
type fakeStore struct {
	mu       sync.Mutex
	messages []entities.Message
	daily    map[string][]entities.StoredMessage
	names    map[string]string
	weekly   []entities.StoredMessage

	summaries []entities.DailySummary
	reports   []entities.WeeklyReport

	saveErr      error
	dailyErr     map[string]error
	groupListErr error
	summaryErr   error
	purged       int64
	purgeErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		daily:    map[string][]entities.StoredMessage{},
		names:    map[string]string{},
		dailyErr: map[string]error{},
	}
}

func (f *fakeStore) SaveMessage(_ context.Context, msg entities.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeStore) DailyMessages(_ context.Context, groupID string) ([]entities.StoredMessage, error) {
	if err := f.dailyErr[groupID]; err != nil {
		return nil, err
	}
	return f.daily[groupID], nil
}

func (f *fakeStore) MessagesSince(_ context.Context, _, _ time.Time) ([]entities.StoredMessage, error) {
	return f.weekly, nil
}

func (f *fakeStore) DistinctGroupIDsToday(_ context.Context) ([]string, error) {
	if f.groupListErr != nil {
		return nil, f.groupListErr
	}
	ids := make([]string, 0, len(f.daily))
	for id := range f.daily {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) GroupName(_ context.Context, groupID string) (string, error) {
	if name, ok := f.names[groupID]; ok {
		return name, nil
	}
	return groupID, nil
}

func (f *fakeStore) SaveSummary(_ context.Context, summary entities.DailySummary) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	summary.ID = "sum-" + summary.GroupID
	f.summaries = append(f.summaries, summary)
	return summary.ID, nil
}

func (f *fakeStore) SummaryByID(_ context.Context, id string) (*entities.DailySummary, error) {
	for i := range f.summaries {
		if f.summaries[i].ID == id {
			return &f.summaries[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveWeeklyReport(_ context.Context, report entities.WeeklyReport) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report.ID = "week-1"
	f.reports = append(f.reports, report)
	return report.ID, nil
}

func (f *fakeStore) WeeklyReportByID(_ context.Context, id string) (*entities.WeeklyReport, error) {
	for i := range f.reports {
		if f.reports[i].ID == id {
			return &f.reports[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PurgeOlderThan(_ context.Context, _ time.Time) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	return f.purged, nil
}

type fakeTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ entities.AudioReference) (string, error) {
	f.calls++
	return f.transcript, f.err
}

type fakeSummarizer struct {
	summary entities.Summary
	err     error
	inputs  []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string) (entities.Summary, error) {
	f.inputs = append(f.inputs, transcript)
	return f.summary, f.err
}

type fakeLinks struct{}

func (fakeLinks) SummaryURL(id string) string      { return "https://example.com/resumo?id=" + id }
func (fakeLinks) WeeklyReportURL(id string) string { return "https://example.com/semanal?id=" + id }

type fakeChannel struct {
	mu    sync.Mutex
	name  string
	err   error
	sends []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, message, url, groupLabel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, groupLabel+"|"+message+"|"+url)
	return f.err
}

var errBoom = errors.New("boom")
