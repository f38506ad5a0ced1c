package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wadigest/internal/entities"
)

// MessageRepository is the Postgres-backed message store.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) SaveMessage(ctx context.Context, msg entities.Message) error {
	raw, err := json.Marshal(msg.RawPayload)
	if err != nil {
		return fmt.Errorf("encoding raw payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO messages (raw_data, from_number, from_name, group_id, group_name, text_content, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		raw,
		nullable(msg.From),
		nullable(msg.FromName),
		nullable(msg.GroupID),
		nullable(msg.GroupName),
		nullable(msg.Text),
		parseReceivedAt(msg.ReceivedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) DailyMessages(ctx context.Context, groupID string) ([]entities.StoredMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(from_name, ''), from_number, 'Desconhecido'),
		       COALESCE(text_content, ''),
		       received_at
		FROM messages
		WHERE group_id = $1 AND received_at >= $2
		ORDER BY received_at ASC`,
		groupID, startOfDay(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("query daily messages: %w", err)
	}
	defer rows.Close()

	var out []entities.StoredMessage
	for rows.Next() {
		var m entities.StoredMessage
		var receivedAt time.Time
		if err := rows.Scan(&m.From, &m.Text, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan daily message: %w", err)
		}
		m.Timestamp = receivedAt.Format(time.RFC3339)
		m.GroupID = groupID
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) MessagesSince(ctx context.Context, since, until time.Time) ([]entities.StoredMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(from_number, ''),
		       COALESCE(text_content, ''),
		       received_at,
		       COALESCE(group_id, '')
		FROM messages
		WHERE received_at >= $1 AND received_at <= $2
		ORDER BY received_at ASC`,
		since, until,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages since: %w", err)
	}
	defer rows.Close()

	var out []entities.StoredMessage
	for rows.Next() {
		var m entities.StoredMessage
		var receivedAt time.Time
		if err := rows.Scan(&m.From, &m.Text, &receivedAt, &m.GroupID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = receivedAt.Format(time.RFC3339)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) DistinctGroupIDsToday(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT group_id
		FROM messages
		WHERE received_at >= $1 AND group_id IS NOT NULL AND group_id <> ''`,
		startOfDay(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("query distinct groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) GroupName(ctx context.Context, groupID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT group_name
		FROM messages
		WHERE group_id = $1 AND group_name IS NOT NULL AND group_name <> ''
		ORDER BY created_at DESC
		LIMIT 1`,
		groupID,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		// Fall back to the raw id when no name was ever captured
		return groupID, nil
	}
	if err != nil {
		return "", fmt.Errorf("query group name: %w", err)
	}
	return name, nil
}

func (r *MessageRepository) SaveSummary(ctx context.Context, summary entities.DailySummary) (string, error) {
	id := summary.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_summaries (id, group_id, group_name, summary_date, summary_content, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		id, summary.GroupID, nullable(summary.GroupName), summary.Date, summary.Content, summary.MessageCount,
	)
	if err != nil {
		return "", fmt.Errorf("insert summary: %w", err)
	}
	return id, nil
}

func (r *MessageRepository) SummaryByID(ctx context.Context, id string) (*entities.DailySummary, error) {
	var s entities.DailySummary
	var date, createdAt time.Time
	var groupName *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, group_id, group_name, summary_date, summary_content, message_count, created_at
		FROM daily_summaries
		WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.GroupID, &groupName, &date, &s.Content, &s.MessageCount, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	if groupName != nil {
		s.GroupName = *groupName
	}
	s.Date = date.Format("2006-01-02")
	s.CreatedAt = createdAt.Format(time.RFC3339)
	return &s, nil
}

func (r *MessageRepository) SaveWeeklyReport(ctx context.Context, report entities.WeeklyReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO weekly_reports (id, week_start, week_end, report_content, message_count, group_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		id, report.WeekStart, report.WeekEnd, report.Content, report.MessageCount, report.GroupCount,
	)
	if err != nil {
		return "", fmt.Errorf("insert weekly report: %w", err)
	}
	return id, nil
}

func (r *MessageRepository) WeeklyReportByID(ctx context.Context, id string) (*entities.WeeklyReport, error) {
	var w entities.WeeklyReport
	var start, end, createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT id, week_start, week_end, report_content, message_count, group_count, created_at
		FROM weekly_reports
		WHERE id = $1`,
		id,
	).Scan(&w.ID, &start, &end, &w.Content, &w.MessageCount, &w.GroupCount, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query weekly report: %w", err)
	}
	w.WeekStart = start.Format("2006-01-02")
	w.WeekEnd = end.Format("2006-01-02")
	w.CreatedAt = createdAt.Format(time.RFC3339)
	return &w, nil
}

func (r *MessageRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// nullable maps the normalizer's "" sentinel to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseReceivedAt accepts the RFC3339 strings the normalizer produces; an
// unparseable pass-through timestamp falls back to the current time.
func parseReceivedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
