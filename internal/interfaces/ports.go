package interfaces

import (
	"context"
	"time"

	"wadigest/internal/entities"
)

// MessageStore persists canonical messages and the digests derived from them.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg entities.Message) error
	DailyMessages(ctx context.Context, groupID string) ([]entities.StoredMessage, error)
	MessagesSince(ctx context.Context, since, until time.Time) ([]entities.StoredMessage, error)
	DistinctGroupIDsToday(ctx context.Context) ([]string, error)
	GroupName(ctx context.Context, groupID string) (string, error)
	SaveSummary(ctx context.Context, summary entities.DailySummary) (string, error)
	SummaryByID(ctx context.Context, id string) (*entities.DailySummary, error)
	SaveWeeklyReport(ctx context.Context, report entities.WeeklyReport) (string, error)
	WeeklyReportByID(ctx context.Context, id string) (*entities.WeeklyReport, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Transcriber turns a detected audio reference into text.
type Transcriber interface {
	Transcribe(ctx context.Context, ref entities.AudioReference) (string, error)
}

// Summarizer produces a digest from a day's worth of group messages.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (entities.Summary, error)
}

// LinkBuilder produces shareable report URLs.
type LinkBuilder interface {
	SummaryURL(id string) string
	WeeklyReportURL(id string) string
}

// NotificationChannel delivers a digest notification. Channels fail
// independently; one channel's error never blocks another.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, message, url, groupLabel string) error
}
