package entities

// Summary is the output of the summarization provider for one group-day.
type Summary struct {
	Full         string // markdown report
	Short        string // one or two sentences for chat notifications
	Participants []string
}

// DailySummary is a persisted group-day digest.
type DailySummary struct {
	ID           string
	GroupID      string
	GroupName    string
	Date         string // YYYY-MM-DD
	Content      string // markdown
	MessageCount int
	CreatedAt    string // RFC3339
}

// StoredMessage is the slim projection used when building digest transcripts
// and weekly statistics.
type StoredMessage struct {
	From      string
	Text      string
	Timestamp string
	GroupID   string
}

// DayCount and GroupCount back the weekly activity breakdowns.
type DayCount struct {
	Date  string
	Count int
}

type GroupCount struct {
	GroupID string
	Count   int
}

type ParticipantCount struct {
	Phone string
	Count int
}

type HourCount struct {
	Hour  int
	Count int
}

// WeeklyStats aggregates seven days of activity across all groups.
type WeeklyStats struct {
	TotalMessages       int
	TotalGroups         int
	MessagesByDay       []DayCount
	MessagesByGroup     []GroupCount
	TopParticipants     []ParticipantCount
	PeakHours           []HourCount
	AvgMessagesPerDay   float64
	AvgMessagesPerGroup float64
	WeekStart           string
	WeekEnd             string
}

// WeeklyReport is a persisted weekly analysis document.
type WeeklyReport struct {
	ID           string
	WeekStart    string
	WeekEnd      string
	Content      string // markdown
	MessageCount int
	GroupCount   int
	CreatedAt    string
}
