package entities

import "time"

// Message is the canonical record produced by the ingestion pipeline.
// Identity fields are best-effort extractions from the raw webhook payload;
// empty string means the field was absent from every known location.
type Message struct {
	From       string
	FromName   string
	GroupID    string
	GroupName  string
	Text       string // possibly transcript-augmented; empty means no text
	ReceivedAt string // RFC3339
	RawPayload map[string]any
}

// AudioReference points at a playable audio attachment found in a payload.
// URL is always non-empty; a type hint without a URL never produces a reference.
type AudioReference struct {
	URL          string
	MimeType     string
	Kind         string // "ptt" for voice notes, "audio" otherwise
	LanguageHint string
}

// JobState tracks a provider-side transcription job.
type JobState string

const (
	JobPending  JobState = "pending"
	JobRunning  JobState = "running"
	JobDone     JobState = "done"
	JobFailed   JobState = "failed"
	JobTimedOut JobState = "timed_out"
)

// TranscriptionJob is created fresh per AudioReference and never reused
// across requests.
type TranscriptionJob struct {
	ID         string
	State      JobState
	Transcript string
	Err        error
	StartedAt  time.Time
}
