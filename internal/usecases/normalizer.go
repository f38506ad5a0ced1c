package usecases

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"wadigest/internal/entities"
)

// Z-API has shipped several webhook shapes over time. Each attribute is an
// ordered list of field paths; the first non-empty hit wins.
var (
	groupIDPaths   = []string{"phone", "chatId", "chat.id", "instanceId"}
	fromIDPaths    = []string{"from", "participantPhone", "author"}
	fromNamePaths  = []string{"senderName", "participantName", "pushName", "notifyName"}
	groupNamePaths = []string{"chatName", "groupName", "chat.name"}
	textPaths      = []string{"text.message", "body", "content", "caption"}
	timestampPaths = []string{"momment", "timestamp"}
)

// Normalize extracts the canonical message fields from a raw webhook payload.
// It never mutates the payload and never fails; missing fields stay empty and
// a missing timestamp falls back to now.
func Normalize(payload map[string]any, now time.Time) entities.Message {
	return entities.Message{
		From:       firstString(payload, fromIDPaths),
		FromName:   firstString(payload, fromNamePaths),
		GroupID:    firstString(payload, groupIDPaths),
		GroupName:  firstString(payload, groupNamePaths),
		Text:       firstString(payload, textPaths),
		ReceivedAt: coerceTimestamp(lookupPath(payload, timestampPaths), now),
		RawPayload: payload,
	}
}

// coerceTimestamp maps the Z-API epoch-millisecond convention onto RFC3339.
// Strings pass through untouched so re-normalizing is idempotent.
func coerceTimestamp(v any, now time.Time) string {
	switch ts := v.(type) {
	case nil:
		return now.UTC().Format(time.RFC3339Nano)
	case string:
		if ts == "" {
			return now.UTC().Format(time.RFC3339Nano)
		}
		return ts
	case float64:
		return time.UnixMilli(int64(ts)).UTC().Format(time.RFC3339Nano)
	case int64:
		return time.UnixMilli(ts).UTC().Format(time.RFC3339Nano)
	case int:
		return time.UnixMilli(int64(ts)).UTC().Format(time.RFC3339Nano)
	case json.Number:
		ms, err := strconv.ParseInt(ts.String(), 10, 64)
		if err != nil {
			return now.UTC().Format(time.RFC3339Nano)
		}
		return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
	default:
		return now.UTC().Format(time.RFC3339Nano)
	}
}

// lookupPath returns the first present value among the candidate paths,
// regardless of type.
func lookupPath(payload map[string]any, paths []string) any {
	for _, path := range paths {
		if v, ok := valueAt(payload, path); ok {
			return v
		}
	}
	return nil
}

// firstString returns the first candidate that resolves to a non-empty string.
func firstString(payload map[string]any, paths []string) string {
	for _, path := range paths {
		v, ok := valueAt(payload, path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// valueAt walks a dotted path through nested objects.
func valueAt(payload map[string]any, path string) (any, bool) {
	cur := any(payload)
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}
