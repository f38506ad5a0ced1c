package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wadigest/internal/entities"
)

// Sentinel errors the ingest pipeline branches on when downgrading a failed
// transcription to a placeholder.
var (
	ErrEnqueueFailed        = errors.New("transcription enqueue failed")
	ErrTranscriptionFailed  = errors.New("transcription failed")
	ErrTranscriptionTimeout = errors.New("transcription timed out")
)

// GladiaConfig tunes the job poll loop.
type GladiaConfig struct {
	APIKey          string
	BaseURL         string
	PollInterval    time.Duration
	Timeout         time.Duration
	DefaultLanguage string
}

// GladiaClient drives asynchronous transcription jobs against the Gladia v2
// API: enqueue with the audio URL, then poll the job until it reaches a
// terminal status or the deadline passes. No retries; the caller decides
// what a failure means.
type GladiaClient struct {
	cfg        GladiaConfig
	httpClient *http.Client
	log        zerolog.Logger

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGladiaClient(cfg GladiaConfig, logger zerolog.Logger) *GladiaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.gladia.io/v2/transcription"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &GladiaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transcribe runs one job to completion. Synchronous for the caller: it
// returns only when the job is done, failed or timed out.
func (c *GladiaClient) Transcribe(ctx context.Context, ref entities.AudioReference) (string, error) {
	language := ref.LanguageHint
	if language == "" {
		language = c.cfg.DefaultLanguage
	}

	job := &entities.TranscriptionJob{State: entities.JobPending, StartedAt: c.now()}

	jobID, err := c.enqueue(ctx, ref.URL, language)
	if err != nil {
		job.State = entities.JobFailed
		job.Err = err
		return "", err
	}
	job.ID = jobID
	job.State = entities.JobRunning
	c.log.Info().Str("job_id", jobID).Str("language", language).Msg("transcription job created")

	result, err := c.poll(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrTranscriptionTimeout) {
			job.State = entities.JobTimedOut
		} else {
			job.State = entities.JobFailed
		}
		job.Err = err
		return "", err
	}

	job.State = entities.JobDone
	job.Transcript = strings.TrimSpace(ExtractTranscript(result))
	c.log.Info().Str("job_id", jobID).Int("transcript_len", len(job.Transcript)).
		Msg("transcription job finished")
	return job.Transcript, nil
}

func (c *GladiaClient) enqueue(ctx context.Context, audioURL, language string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"audio_url": audioURL,
		"language":  language,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gladia-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrEnqueueFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrEnqueueFailed, resp.StatusCode, respBody)
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrEnqueueFailed, err)
	}

	// The job id field has moved between API revisions.
	for _, key := range []string{"id", "result_id", "transcription_id", "task_id"} {
		if id, ok := payload[key].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: response carries no job id", ErrEnqueueFailed)
}

func (c *GladiaClient) poll(ctx context.Context, jobID string) (map[string]any, error) {
	deadline := c.now().Add(c.cfg.Timeout)

	for c.now().Before(deadline) {
		payload, err := c.fetchStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		status := strings.ToLower(statusOf(payload))
		switch status {
		case "done", "finished", "completed":
			if result, ok := payload["result"].(map[string]any); ok {
				return result, nil
			}
			return payload, nil
		case "error", "failed":
			return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, providerError(payload))
		}

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %s (job %s)", ErrTranscriptionTimeout, c.cfg.Timeout, jobID)
}

func (c *GladiaClient) fetchStatus(ctx context.Context, jobID string) (map[string]any, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gladia-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading status: %v", ErrTranscriptionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrTranscriptionFailed, resp.StatusCode, respBody)
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: parsing status: %v", ErrTranscriptionFailed, err)
	}
	return payload, nil
}

func statusOf(payload map[string]any) string {
	if s, ok := payload["status"].(string); ok {
		return s
	}
	if result, ok := payload["result"].(map[string]any); ok {
		if s, ok := result["status"].(string); ok {
			return s
		}
	}
	return ""
}

func providerError(payload map[string]any) string {
	if s, ok := payload["error"].(string); ok && s != "" {
		return s
	}
	if s, ok := payload["message"].(string); ok && s != "" {
		return s
	}
	return "provider reported failure without a message"
}

// ExtractTranscript pulls the transcript text out of whichever result shape
// the provider returned. An unrecognized shape is not an error: the job
// succeeded, it just produced no usable text.
func ExtractTranscript(result map[string]any) string {
	if result == nil {
		return ""
	}

	if tr, ok := result["transcription"].(map[string]any); ok {
		if s, ok := tr["full_transcript"].(string); ok && s != "" {
			return s
		}
		if s, ok := tr["full_text"].(string); ok && s != "" {
			return s
		}
	}
	if nested, ok := result["result"].(map[string]any); ok {
		if tr, ok := nested["transcription"].(map[string]any); ok {
			if s, ok := tr["full_text"].(string); ok && s != "" {
				return s
			}
		}
	}
	if tr, ok := result["transcription"].(map[string]any); ok {
		if joined := joinTexts(tr["utterances"]); joined != "" {
			return joined
		}
		if joined := joinTexts(tr["segments"]); joined != "" {
			return joined
		}
	}
	if s, ok := result["text"].(string); ok && s != "" {
		return s
	}
	if nested, ok := result["result"].(map[string]any); ok {
		if s, ok := nested["text"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func joinTexts(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := obj["text"].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
