package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wadigest/internal/entities"
)

// Dialect selects the flavor-specific bits of the database/sql store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres" // Supabase direct connection (pgx stdlib)
	DialectSQLite   Dialect = "sqlite"   // local/dev mode (modernc driver)
)

// SQLMessageRepository implements the message store over a plain sql.DB
// handle. It backs both the Supabase driver (Postgres wire) and the local
// SQLite driver; both accept $1-style parameters.
type SQLMessageRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLMessageRepository(db *sql.DB, dialect Dialect) *SQLMessageRepository {
	return &SQLMessageRepository{db: db, dialect: dialect}
}

// Migrate creates the schema. SQLite stores timestamps as RFC3339 text,
// which compares correctly because everything is written in UTC.
func (r *SQLMessageRepository) Migrate(ctx context.Context) error {
	var stmts []string
	if r.dialect == DialectSQLite {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				raw_data TEXT,
				from_number TEXT,
				from_name TEXT,
				group_id TEXT,
				group_name TEXT,
				text_content TEXT,
				received_at TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_group_received
				ON messages (group_id, received_at)`,
			`CREATE TABLE IF NOT EXISTS daily_summaries (
				id TEXT PRIMARY KEY,
				group_id TEXT NOT NULL,
				group_name TEXT,
				summary_date TEXT NOT NULL,
				summary_content TEXT NOT NULL,
				message_count INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS weekly_reports (
				id TEXT PRIMARY KEY,
				week_start TEXT NOT NULL,
				week_end TEXT NOT NULL,
				report_content TEXT NOT NULL,
				message_count INTEGER NOT NULL DEFAULT 0,
				group_count INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS messages (
				id SERIAL PRIMARY KEY,
				raw_data JSONB,
				from_number VARCHAR(64),
				from_name VARCHAR(255),
				group_id VARCHAR(128),
				group_name VARCHAR(255),
				text_content TEXT,
				received_at TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_group_received
				ON messages (group_id, received_at)`,
			`CREATE TABLE IF NOT EXISTS daily_summaries (
				id VARCHAR(64) PRIMARY KEY,
				group_id VARCHAR(128) NOT NULL,
				group_name VARCHAR(255),
				summary_date DATE NOT NULL,
				summary_content TEXT NOT NULL,
				message_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS weekly_reports (
				id VARCHAR(64) PRIMARY KEY,
				week_start DATE NOT NULL,
				week_end DATE NOT NULL,
				report_content TEXT NOT NULL,
				message_count INT NOT NULL DEFAULT 0,
				group_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL
			)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", r.dialect, err)
		}
	}
	return nil
}

// timeParam renders a timestamp the way the backend expects it.
func (r *SQLMessageRepository) timeParam(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

func (r *SQLMessageRepository) SaveMessage(ctx context.Context, msg entities.Message) error {
	raw, err := json.Marshal(msg.RawPayload)
	if err != nil {
		return fmt.Errorf("encoding raw payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (raw_data, from_number, from_name, group_id, group_name, text_content, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(raw),
		nullable(msg.From),
		nullable(msg.FromName),
		nullable(msg.GroupID),
		nullable(msg.GroupName),
		nullable(msg.Text),
		r.timeParam(parseReceivedAt(msg.ReceivedAt)),
		r.timeParam(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *SQLMessageRepository) DailyMessages(ctx context.Context, groupID string) ([]entities.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(from_name, ''), from_number, 'Desconhecido'),
		       COALESCE(text_content, ''),
		       received_at
		FROM messages
		WHERE group_id = $1 AND received_at >= $2
		ORDER BY received_at ASC`,
		groupID, r.timeParam(startOfDay(time.Now())),
	)
	if err != nil {
		return nil, fmt.Errorf("query daily messages: %w", err)
	}
	defer rows.Close()

	var out []entities.StoredMessage
	for rows.Next() {
		var m entities.StoredMessage
		var receivedAt any
		if err := rows.Scan(&m.From, &m.Text, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan daily message: %w", err)
		}
		m.Timestamp = scanTimestamp(receivedAt)
		m.GroupID = groupID
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLMessageRepository) MessagesSince(ctx context.Context, since, until time.Time) ([]entities.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(from_number, ''),
		       COALESCE(text_content, ''),
		       received_at,
		       COALESCE(group_id, '')
		FROM messages
		WHERE received_at >= $1 AND received_at <= $2
		ORDER BY received_at ASC`,
		r.timeParam(since), r.timeParam(until),
	)
	if err != nil {
		return nil, fmt.Errorf("query messages since: %w", err)
	}
	defer rows.Close()

	var out []entities.StoredMessage
	for rows.Next() {
		var m entities.StoredMessage
		var receivedAt any
		if err := rows.Scan(&m.From, &m.Text, &receivedAt, &m.GroupID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = scanTimestamp(receivedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLMessageRepository) DistinctGroupIDsToday(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT group_id
		FROM messages
		WHERE received_at >= $1 AND group_id IS NOT NULL AND group_id <> ''`,
		r.timeParam(startOfDay(time.Now())),
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

func (r *SQLMessageRepository) GroupName(ctx context.Context, groupID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `
		SELECT group_name
		FROM messages
		WHERE group_id = $1 AND group_name IS NOT NULL AND group_name <> ''
		ORDER BY created_at DESC
		LIMIT 1`,
		groupID,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return groupID, nil
	}
	if err != nil {
		return "", fmt.Errorf("query group name: %w", err)
	}
	return name, nil
}

func (r *SQLMessageRepository) SaveSummary(ctx context.Context, summary entities.DailySummary) (string, error) {
	id := summary.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (id, group_id, group_name, summary_date, summary_content, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, summary.GroupID, nullable(summary.GroupName), summary.Date, summary.Content, summary.MessageCount,
		r.timeParam(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert summary: %w", err)
	}
	return id, nil
}

func (r *SQLMessageRepository) SummaryByID(ctx context.Context, id string) (*entities.DailySummary, error) {
	var s entities.DailySummary
	var date, createdAt any
	var groupName sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, group_name, summary_date, summary_content, message_count, created_at
		FROM daily_summaries
		WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.GroupID, &groupName, &date, &s.Content, &s.MessageCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	s.GroupName = groupName.String
	s.Date = scanDate(date)
	s.CreatedAt = scanTimestamp(createdAt)
	return &s, nil
}

func (r *SQLMessageRepository) SaveWeeklyReport(ctx context.Context, report entities.WeeklyReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO weekly_reports (id, week_start, week_end, report_content, message_count, group_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, report.WeekStart, report.WeekEnd, report.Content, report.MessageCount, report.GroupCount,
		r.timeParam(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert weekly report: %w", err)
	}
	return id, nil
}

func (r *SQLMessageRepository) WeeklyReportByID(ctx context.Context, id string) (*entities.WeeklyReport, error) {
	var w entities.WeeklyReport
	var start, end, createdAt any
	err := r.db.QueryRowContext(ctx, `
		SELECT id, week_start, week_end, report_content, message_count, group_count, created_at
		FROM weekly_reports
		WHERE id = $1`,
		id,
	).Scan(&w.ID, &start, &end, &w.Content, &w.MessageCount, &w.GroupCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query weekly report: %w", err)
	}
	w.WeekStart = scanDate(start)
	w.WeekEnd = scanDate(end)
	w.CreatedAt = scanTimestamp(createdAt)
	return &w, nil
}

func (r *SQLMessageRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at <= $1`, r.timeParam(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge row count: %w", err)
	}
	return n, nil
}

// scanTimestamp normalizes the driver-specific timestamp representation.
func scanTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func scanDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case string:
		if len(t) >= 10 {
			return t[:10]
		}
		return t
	case []byte:
		return scanDate(string(t))
	default:
		return ""
	}
}
