package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wadigest/internal/entities"
	"wadigest/internal/interfaces"
)

// WeeklyService builds the seven-day activity report across all groups.
type WeeklyService struct {
	store      interfaces.MessageStore
	summarizer interfaces.Summarizer
	links      interfaces.LinkBuilder
	channels   []interfaces.NotificationChannel
	log        zerolog.Logger

	now func() time.Time
}

func NewWeeklyService(
	store interfaces.MessageStore,
	summarizer interfaces.Summarizer,
	links interfaces.LinkBuilder,
	channels []interfaces.NotificationChannel,
	logger zerolog.Logger,
) *WeeklyService {
	return &WeeklyService{
		store:      store,
		summarizer: summarizer,
		links:      links,
		channels:   channels,
		log:        logger,
		now:        time.Now,
	}
}

// Run aggregates the last seven days, asks the summarizer for insights over
// the numbers, persists the report and notifies every channel.
func (s *WeeklyService) Run(ctx context.Context) error {
	until := s.now()
	since := until.AddDate(0, 0, -7)

	s.log.Info().
		Str("since", since.Format("2006-01-02")).
		Str("until", until.Format("2006-01-02")).
		Msg("starting weekly report run")

	messages, err := s.store.MessagesSince(ctx, since, until)
	if err != nil {
		return fmt.Errorf("loading week messages: %w", err)
	}
	if len(messages) == 0 {
		s.log.Info().Msg("no messages this week, skipping report")
		return nil
	}

	stats := ComputeWeeklyStats(messages, since, until)

	insights, err := s.summarizer.Summarize(ctx, statsPrompt(stats))
	if err != nil {
		s.log.Error().Err(err).Msg("weekly insights unavailable, using stats only")
		insights = entities.Summary{}
	}

	id, err := s.store.SaveWeeklyReport(ctx, entities.WeeklyReport{
		WeekStart:    stats.WeekStart,
		WeekEnd:      stats.WeekEnd,
		Content:      renderWeeklyContent(stats, insights.Full),
		MessageCount: stats.TotalMessages,
		GroupCount:   stats.TotalGroups,
	})
	if err != nil {
		return fmt.Errorf("saving weekly report: %w", err)
	}

	url := s.links.WeeklyReportURL(id)
	s.log.Info().Str("url", url).Int("messages", stats.TotalMessages).Msg("weekly report saved")

	short := fmt.Sprintf("Relatório semanal pronto: %d mensagens em %d grupos.",
		stats.TotalMessages, stats.TotalGroups)
	for _, ch := range s.channels {
		if err := ch.Send(ctx, short, url, "Relatório Semanal"); err != nil {
			s.log.Error().Err(err).Str("channel", ch.Name()).Msg("weekly notification failed")
		}
	}
	return nil
}

// ComputeWeeklyStats tallies the week's messages by day, group, participant
// and hour. Timestamps that fail to parse count toward totals but are left
// out of the time-based breakdowns.
func ComputeWeeklyStats(messages []entities.StoredMessage, since, until time.Time) entities.WeeklyStats {
	byDay := map[string]int{}
	byGroup := map[string]int{}
	byPhone := map[string]int{}
	byHour := map[int]int{}

	for _, msg := range messages {
		byGroup[msg.GroupID]++
		byPhone[msg.From]++
		if ts, err := parseStoredTimestamp(msg.Timestamp); err == nil {
			byDay[ts.Format("2006-01-02")]++
			byHour[ts.Hour()]++
		}
	}

	stats := entities.WeeklyStats{
		TotalMessages: len(messages),
		TotalGroups:   len(byGroup),
		WeekStart:     since.Format("2006-01-02"),
		WeekEnd:       until.Format("2006-01-02"),
	}

	for day, count := range byDay {
		stats.MessagesByDay = append(stats.MessagesByDay, entities.DayCount{Date: day, Count: count})
	}
	sort.Slice(stats.MessagesByDay, func(i, j int) bool {
		return stats.MessagesByDay[i].Date < stats.MessagesByDay[j].Date
	})

	for groupID, count := range byGroup {
		stats.MessagesByGroup = append(stats.MessagesByGroup, entities.GroupCount{GroupID: groupID, Count: count})
	}
	sort.Slice(stats.MessagesByGroup, func(i, j int) bool {
		return stats.MessagesByGroup[i].Count > stats.MessagesByGroup[j].Count
	})

	for phone, count := range byPhone {
		stats.TopParticipants = append(stats.TopParticipants, entities.ParticipantCount{Phone: phone, Count: count})
	}
	sort.Slice(stats.TopParticipants, func(i, j int) bool {
		return stats.TopParticipants[i].Count > stats.TopParticipants[j].Count
	})
	if len(stats.TopParticipants) > 10 {
		stats.TopParticipants = stats.TopParticipants[:10]
	}

	for hour, count := range byHour {
		stats.PeakHours = append(stats.PeakHours, entities.HourCount{Hour: hour, Count: count})
	}
	sort.Slice(stats.PeakHours, func(i, j int) bool {
		return stats.PeakHours[i].Count > stats.PeakHours[j].Count
	})
	if len(stats.PeakHours) > 5 {
		stats.PeakHours = stats.PeakHours[:5]
	}

	if days := len(byDay); days > 0 {
		stats.AvgMessagesPerDay = float64(stats.TotalMessages) / float64(days)
	}
	if stats.TotalGroups > 0 {
		stats.AvgMessagesPerGroup = float64(stats.TotalMessages) / float64(stats.TotalGroups)
	}
	return stats
}

func parseStoredTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

func statsPrompt(stats entities.WeeklyStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Estatísticas da semana de %s a %s:\n", stats.WeekStart, stats.WeekEnd)
	fmt.Fprintf(&sb, "Total de mensagens: %d\n", stats.TotalMessages)
	fmt.Fprintf(&sb, "Grupos ativos: %d\n", stats.TotalGroups)
	fmt.Fprintf(&sb, "Média de mensagens por dia: %.1f\n", stats.AvgMessagesPerDay)
	fmt.Fprintf(&sb, "Média de mensagens por grupo: %.1f\n", stats.AvgMessagesPerGroup)
	sb.WriteString("Mensagens por dia:\n")
	for _, day := range stats.MessagesByDay {
		fmt.Fprintf(&sb, "- %s: %d\n", day.Date, day.Count)
	}
	sb.WriteString("Horários de pico:\n")
	for _, hour := range stats.PeakHours {
		fmt.Fprintf(&sb, "- %02dh: %d mensagens\n", hour.Hour, hour.Count)
	}
	sb.WriteString("Gere uma análise curta destacando tendências e padrões de atividade.")
	return sb.String()
}

func renderWeeklyContent(stats entities.WeeklyStats, insights string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Relatório Semanal\n\n**Período:** %s a %s\n\n", stats.WeekStart, stats.WeekEnd)
	fmt.Fprintf(&sb, "## Números da Semana\n\n")
	fmt.Fprintf(&sb, "- **Mensagens:** %d\n", stats.TotalMessages)
	fmt.Fprintf(&sb, "- **Grupos ativos:** %d\n", stats.TotalGroups)
	fmt.Fprintf(&sb, "- **Média por dia:** %.1f\n", stats.AvgMessagesPerDay)
	fmt.Fprintf(&sb, "- **Média por grupo:** %.1f\n\n", stats.AvgMessagesPerGroup)

	sb.WriteString("## Atividade por Dia\n\n")
	for _, day := range stats.MessagesByDay {
		fmt.Fprintf(&sb, "- %s: %d mensagens\n", day.Date, day.Count)
	}

	if len(stats.TopParticipants) > 0 {
		sb.WriteString("\n## Participantes Mais Ativos\n\n")
		for i, p := range stats.TopParticipants {
			fmt.Fprintf(&sb, "%d. %s (%d mensagens)\n", i+1, p.Phone, p.Count)
		}
	}

	if len(stats.PeakHours) > 0 {
		sb.WriteString("\n## Horários de Pico\n\n")
		for _, hour := range stats.PeakHours {
			fmt.Fprintf(&sb, "- %02dh: %d mensagens\n", hour.Hour, hour.Count)
		}
	}

	if insights != "" {
		fmt.Fprintf(&sb, "\n## Análise\n\n%s\n", insights)
	}
	return sb.String()
}
