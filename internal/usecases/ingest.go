package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wadigest/internal/entities"
	"wadigest/internal/interfaces"
)

// AudioPlaceholder replaces the message text when a voice note arrives but no
// usable transcript could be produced.
const AudioPlaceholder = "[Áudio recebido - transcrição indisponível]"

// IngestService runs the webhook pipeline: normalize → detect audio →
// transcribe → merge → persist. One store call per inbound payload.
type IngestService struct {
	store       interfaces.MessageStore
	transcriber interfaces.Transcriber
	log         zerolog.Logger

	now func() time.Time
}

func NewIngestService(store interfaces.MessageStore, transcriber interfaces.Transcriber, logger zerolog.Logger) *IngestService {
	return &IngestService{
		store:       store,
		transcriber: transcriber,
		log:         logger,
		now:         time.Now,
	}
}

// Process ingests one webhook payload. Transcription failures degrade to a
// placeholder; a store failure is fatal for the request.
func (s *IngestService) Process(ctx context.Context, payload map[string]any) error {
	msg := Normalize(payload, s.now())

	preview := msg.Text
	if len(preview) > 50 {
		preview = preview[:50]
	}
	s.log.Info().
		Str("group_id", msg.GroupID).
		Str("from", msg.From).
		Str("text_preview", preview).
		Str("received_at", msg.ReceivedAt).
		Msg("webhook message received")

	if ref := DetectAudio(payload); ref != nil {
		msg.Text = s.mergeTranscript(ctx, msg.Text, *ref)
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return fmt.Errorf("saving message: %w", err)
	}
	s.log.Debug().Str("group_id", msg.GroupID).Msg("message persisted")
	return nil
}

// mergeTranscript combines the payload's own text with the transcription
// outcome. Existing text always survives; the placeholder is a last resort
// for audio-only messages with nothing transcribable.
func (s *IngestService) mergeTranscript(ctx context.Context, text string, ref entities.AudioReference) string {
	s.log.Info().Str("url", truncateValue(ref.URL)).Str("kind", ref.Kind).
		Str("mime", ref.MimeType).Msg("audio detected, starting transcription")

	transcript, err := s.transcriber.Transcribe(ctx, ref)
	if err != nil {
		s.log.Warn().Err(err).Msg("transcription unavailable, using placeholder")
		transcript = ""
	}

	switch {
	case transcript == "" && text == "":
		return AudioPlaceholder
	case transcript == "":
		return text
	case text == "":
		return "Áudio transcrito: " + transcript
	default:
		return text + "\n[Áudio transcrito: " + transcript + "]"
	}
}
