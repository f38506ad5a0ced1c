package usecases

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wadigest/internal/entities"
)

// Field-path guesses for audio attachments, in priority order. These cover
// every payload shape captured from live Z-API traffic so far; the nested
// variants handle the message/media/payload wrapper objects.
var (
	audioTypePaths = []string{
		"type", "messageType", "mediaType", "typeMessage",
		"message.type", "media.type",
	}
	audioURLPaths = []string{
		"audioUrl", "audio_url", "voiceUrl", "voice_url",
		"mediaUrl", "media_url", "url",
		"message.audioUrl", "message.mediaUrl", "message.url",
		"media.url", "media.audioUrl",
		"payload.audioUrl", "payload.mediaUrl", "payload.url",
		"body.audioUrl", "body.url",
		"fileUrl", "file_url", "base64", "data",
	}
	audioMimePaths = []string{"mimeType", "mimetype", "mime_type", "audio.mimeType"}
	audioLangPaths = []string{"language", "lang", "languageCode", "audio.language"}

	audioTypeTokens = map[string]bool{
		"audio": true, "ptt": true, "voice": true,
		"voice_note": true, "voicenote": true,
		"ptt_message": true, "audio_message": true,
	}
)

// DetectAudio inspects a raw payload for a playable audio reference.
// A type hint without a retrievable URL is not actionable, so it returns nil
// in that case: missed audio is preferable to fetching a resource that does
// not exist.
func DetectAudio(payload map[string]any) *entities.AudioReference {
	if ref := structuredAudio(payload); ref != nil {
		return ref
	}
	return heuristicAudio(payload)
}

// structuredAudio handles the dedicated audio descriptor object newer Z-API
// payloads carry.
func structuredAudio(payload map[string]any) *entities.AudioReference {
	obj, ok := payload["audio"].(map[string]any)
	if !ok {
		return nil
	}

	url := stringField(obj, "audioUrl")
	if url == "" {
		url = stringField(obj, "url")
	}
	if url == "" {
		return nil
	}

	kind := "audio"
	if ptt, ok := obj["ptt"].(bool); ok && ptt {
		kind = "ptt"
	}
	return &entities.AudioReference{
		URL:          url,
		MimeType:     stringField(obj, "mimeType"),
		Kind:         kind,
		LanguageHint: firstString(payload, audioLangPaths),
	}
}

func heuristicAudio(payload map[string]any) *entities.AudioReference {
	rawType := firstString(payload, audioTypePaths)
	url := firstString(payload, audioURLPaths)
	mime := firstString(payload, audioMimePaths)

	isAudioType := audioTypeTokens[strings.ToLower(rawType)]

	if url == "" {
		if isAudioType || strings.HasPrefix(mime, "audio") {
			log.Debug().Str("type", rawType).Str("mime", mime).
				Msg("audio type hint without retrievable URL, skipping")
		}
		return nil
	}

	kind := "audio"
	if isAudioType {
		kind = strings.ToLower(rawType)
	}
	return &entities.AudioReference{
		URL:          url,
		MimeType:     mime,
		Kind:         kind,
		LanguageHint: firstString(payload, audioLangPaths),
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// AudioScan is the diagnostic report produced for the inspect endpoint.
type AudioScan struct {
	HasAudio        bool             `json:"hasAudio"`
	AudioType       string           `json:"audioType,omitempty"`
	AudioURL        string           `json:"audioUrl,omitempty"`
	TypeCandidates  []string         `json:"typeCandidates"`
	URLCandidates   []string         `json:"urlCandidates"`
	AudioCandidates []AudioCandidate `json:"audioCandidates"`
}

// AudioCandidate is a payload field whose key looks audio-related.
type AudioCandidate struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

const maxScanDepth = 4

// ScanAudioFields walks the payload collecting every audio-looking field for
// diagnostics. The recursion is depth-bounded; real payloads nest at most a
// couple of levels.
func ScanAudioFields(payload map[string]any) AudioScan {
	scan := AudioScan{
		TypeCandidates:  []string{},
		URLCandidates:   []string{},
		AudioCandidates: []AudioCandidate{},
	}

	var walk func(obj map[string]any, prefix string, depth int)
	walk = func(obj map[string]any, prefix string, depth int) {
		if depth > maxScanDepth {
			return
		}
		for key, value := range obj {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}

			lower := strings.ToLower(key)
			for _, term := range []string{"audio", "voice", "ptt", "sound", "media"} {
				if strings.Contains(lower, term) {
					scan.AudioCandidates = append(scan.AudioCandidates, AudioCandidate{
						Path:  path,
						Value: truncateValue(value),
					})
					break
				}
			}

			if nested, ok := value.(map[string]any); ok {
				walk(nested, path, depth+1)
			}
		}
	}
	walk(payload, "", 0)

	for _, p := range audioTypePaths {
		if s := firstString(payload, []string{p}); s != "" {
			scan.TypeCandidates = append(scan.TypeCandidates, s)
		}
	}
	for _, p := range audioURLPaths {
		if s := firstString(payload, []string{p}); s != "" {
			scan.URLCandidates = append(scan.URLCandidates, truncateValue(s))
		}
	}

	if ref := DetectAudio(payload); ref != nil {
		scan.HasAudio = true
		scan.AudioType = ref.Kind
		scan.AudioURL = truncateValue(ref.URL)
	}
	return scan
}

func truncateValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
