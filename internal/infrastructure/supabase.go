package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds what is needed to reach a Supabase project.
type SupabaseConfig struct {
	// ProjectURL is the project URL, e.g. "https://[ref].supabase.co".
	ProjectURL string
	// APIKey is the anon or service_role key (SDK features).
	APIKey string
	// Password is the database password; combined with ProjectURL it yields
	// the direct Postgres connection string.
	Password string
	// ConnectionString overrides the derived one when provided.
	ConnectionString string
}

// SupabaseClient wraps the project's Postgres connection plus the Supabase
// SDK handle.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect initializes the SDK client and opens the direct database
// connection used by the message store.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.ProjectURL != "" && c.cfg.APIKey != "" {
		sdkClient, err := supabase.NewClient(c.cfg.ProjectURL, c.cfg.APIKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdkClient
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" {
		var err error
		connStr, err = c.buildConnectionString()
		if err != nil {
			return err
		}
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open supabase postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping supabase postgres: %w", err)
	}
	c.db = db
	return nil
}

func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// SDK exposes the Supabase client for auth/storage features.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// buildConnectionString derives the direct Postgres DSN from the project URL.
func (c *SupabaseClient) buildConnectionString() (string, error) {
	if c.cfg.ProjectURL == "" || c.cfg.Password == "" {
		return "", fmt.Errorf("supabase project URL and password are required without an explicit connection string")
	}

	parsed, err := url.Parse(c.cfg.ProjectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid supabase URL %q: expected [project-ref].supabase.co", c.cfg.ProjectURL)
	}
	projectRef := parts[0]

	return fmt.Sprintf(
		"postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require&statement_cache_capacity=0",
		url.QueryEscape(c.cfg.Password), projectRef,
	), nil
}
