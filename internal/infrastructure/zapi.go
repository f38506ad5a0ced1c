package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var groupIDPattern = regexp.MustCompile(`^\d+-group$`)

// ZAPIChannel sends digest notifications back into the WhatsApp group via
// the Z-API HTTP gateway.
type ZAPIChannel struct {
	instanceID  string
	token       string
	clientToken string
	baseURL     string
	httpClient  *http.Client
	limiter     *MessageRateLimiter
	log         zerolog.Logger
}

func NewZAPIChannel(instanceID, token, clientToken string, logger zerolog.Logger) *ZAPIChannel {
	return &ZAPIChannel{
		instanceID:  instanceID,
		token:       token,
		clientToken: clientToken,
		baseURL:     "https://api.z-api.io",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     NewMessageRateLimiter(1, 3),
		log:         logger,
	}
}

func (z *ZAPIChannel) Name() string { return "zapi" }

func (z *ZAPIChannel) Send(ctx context.Context, message, url, groupLabel string) error {
	if z.instanceID == "" || z.token == "" || z.clientToken == "" {
		return fmt.Errorf("z-api credentials not configured")
	}

	phone, err := z.resolveGroupID(ctx, groupLabel)
	if err != nil {
		return err
	}

	if !z.limiter.Allow(phone) {
		wait := z.limiter.WaitTime(phone)
		z.log.Debug().Str("phone", phone).Dur("wait", wait).Msg("pacing outbound message")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	body, _ := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message + "\n\n🔗 " + url,
	})

	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/send-text", z.baseURL, z.instanceID, z.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building z-api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Token", z.clientToken)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending via z-api: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("z-api returned %d: %s", resp.StatusCode, respBody)
	}
	z.log.Info().Str("phone", phone).Msg("digest sent to WhatsApp group")
	return nil
}

// resolveGroupID maps whatever label the digest knows (raw id or group name)
// onto the phone-style id Z-API expects. Lookup failures degrade to the
// "<id>-group" convention instead of failing the send.
func (z *ZAPIChannel) resolveGroupID(ctx context.Context, groupID string) (string, error) {
	if groupIDPattern.MatchString(groupID) {
		return groupID, nil
	}

	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/chats", z.baseURL, z.instanceID, z.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building chats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Token", z.clientToken)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		z.log.Warn().Err(err).Msg("chat lookup failed, using provided group id")
		return fallbackGroupID(groupID), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var chats []struct {
			Phone   string `json:"phone"`
			Name    string `json:"name"`
			IsGroup bool   `json:"isGroup"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&chats); err == nil {
			for _, chat := range chats {
				if !chat.IsGroup {
					continue
				}
				if chat.Phone == groupID || chat.Phone == groupID+"-group" ||
					strings.Contains(strings.ToLower(chat.Name), strings.ToLower(groupID)) {
					z.log.Info().Str("name", chat.Name).Str("phone", chat.Phone).Msg("group resolved")
					return chat.Phone, nil
				}
			}
		}
	}
	return fallbackGroupID(groupID), nil
}

func fallbackGroupID(groupID string) string {
	if strings.Contains(groupID, "-group") {
		return groupID
	}
	return groupID + "-group"
}
