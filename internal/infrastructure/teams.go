package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsChannel posts digest notifications to an MS Teams incoming webhook
// using the legacy MessageCard format.
type TeamsChannel struct {
	webhookURL string
	httpClient *http.Client
}

func NewTeamsChannel(webhookURL string) *TeamsChannel {
	return &TeamsChannel{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *TeamsChannel) Name() string { return "teams" }

func (t *TeamsChannel) Send(ctx context.Context, message, url, groupLabel string) error {
	if t.webhookURL == "" {
		return fmt.Errorf("teams webhook URL not configured")
	}

	card := map[string]any{
		"@type":    "MessageCard",
		"@context": "https://schema.org/extensions",
		"summary":  "📱 " + groupLabel,
		"sections": []map[string]any{{
			"activityTitle":    "📱 " + groupLabel,
			"activitySubtitle": time.Now().Format("02/01/2006"),
			"text":             message,
		}},
		"potentialAction": []map[string]any{{
			"@type": "OpenUri",
			"name":  "Ver Resumo Completo",
			"targets": []map[string]any{
				{"os": "default", "uri": url},
			},
		}},
	}

	body, _ := json.Marshal(card)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building teams request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to teams: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams webhook returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
