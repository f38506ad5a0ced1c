package usecases

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wadigest/internal/entities"
	"wadigest/internal/interfaces"
)

// DigestService generates the per-group daily summaries and fans the
// notifications out to every configured channel.
type DigestService struct {
	store      interfaces.MessageStore
	summarizer interfaces.Summarizer
	links      interfaces.LinkBuilder
	channels   []interfaces.NotificationChannel
	log        zerolog.Logger

	RetentionDays  int
	MaxStartJitter time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDigestService(
	store interfaces.MessageStore,
	summarizer interfaces.Summarizer,
	links interfaces.LinkBuilder,
	channels []interfaces.NotificationChannel,
	logger zerolog.Logger,
) *DigestService {
	return &DigestService{
		store:         store,
		summarizer:    summarizer,
		links:         links,
		channels:      channels,
		log:           logger,
		RetentionDays: 7,
		now:           time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Run processes every group active today. Failures are isolated per group;
// the run only fails when no group could be processed at all. Old messages
// are purged afterwards regardless of per-group outcomes.
func (s *DigestService) Run(ctx context.Context) error {
	if s.MaxStartJitter > 0 {
		jitter := time.Duration(rand.Int63n(int64(s.MaxStartJitter)))
		s.log.Debug().Dur("jitter", jitter).Msg("delaying digest start")
		if err := s.sleep(ctx, jitter); err != nil {
			return err
		}
	}

	s.log.Info().Msg("starting multi-group digest run")

	groupIDs, err := s.store.DistinctGroupIDsToday(ctx)
	if err != nil {
		return fmt.Errorf("listing active groups: %w", err)
	}
	if len(groupIDs) == 0 {
		s.log.Info().Msg("no active groups today")
		return nil
	}

	succeeded := 0
	for _, groupID := range groupIDs {
		if err := s.processGroup(ctx, groupID); err != nil {
			s.log.Error().Err(err).Str("group_id", groupID).Msg("group digest failed, continuing")
			continue
		}
		succeeded++
	}

	s.purgeOld(ctx)

	if succeeded == 0 {
		return fmt.Errorf("digest run failed for all %d groups", len(groupIDs))
	}
	s.log.Info().Int("groups", succeeded).Msg("digest run finished")
	return nil
}

func (s *DigestService) processGroup(ctx context.Context, groupID string) error {
	groupName, err := s.store.GroupName(ctx, groupID)
	if err != nil {
		return fmt.Errorf("resolving group name: %w", err)
	}

	messages, err := s.store.DailyMessages(ctx, groupID)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	if len(messages) == 0 {
		s.log.Info().Str("group", groupName).Msg("no new messages, skipping")
		return nil
	}

	summary, err := s.summarizer.Summarize(ctx, BuildTranscript(messages))
	if err != nil {
		return fmt.Errorf("summarizing %d messages: %w", len(messages), err)
	}

	id, err := s.store.SaveSummary(ctx, entities.DailySummary{
		GroupID:      groupID,
		GroupName:    groupName,
		Date:         s.now().Format("2006-01-02"),
		Content:      summary.Full,
		MessageCount: len(messages),
	})
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}

	url := s.links.SummaryURL(id)
	s.log.Info().Str("group", groupName).Str("url", url).Msg("summary saved")

	s.notifyAll(ctx, summary.Short, url, groupName)
	return nil
}

// notifyAll fires every channel concurrently and collects each outcome on
// its own; a failing channel never blocks the others.
func (s *DigestService) notifyAll(ctx context.Context, message, url, groupLabel string) {
	var wg sync.WaitGroup
	for _, ch := range s.channels {
		wg.Add(1)
		go func(ch interfaces.NotificationChannel) {
			defer wg.Done()
			if err := ch.Send(ctx, message, url, groupLabel); err != nil {
				s.log.Error().Err(err).Str("channel", ch.Name()).Msg("notification failed")
				return
			}
			s.log.Info().Str("channel", ch.Name()).Msg("notification sent")
		}(ch)
	}
	wg.Wait()
}

func (s *DigestService) purgeOld(ctx context.Context) {
	cutoff := s.now().AddDate(0, 0, -s.RetentionDays)
	removed, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("purging old messages failed")
		return
	}
	s.log.Info().Int64("removed", removed).Int("retention_days", s.RetentionDays).
		Msg("old messages purged")
}

// BuildTranscript renders stored messages into the "[ts] sender: text" lines
// the summarization prompt expects.
func BuildTranscript(messages []entities.StoredMessage) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] %s: %s", msg.Timestamp, msg.From, msg.Text)
	}
	return sb.String()
}
