package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries everything the service reads from the environment.
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Webhook       WebhookConfig
	Transcription TranscriptionConfig
	Summarizer    SummarizerConfig
	Notify        NotifyConfig
	Digest        DigestConfig
}

type ServerConfig struct {
	Addr    string
	BaseURL string // public base URL for shareable report links
}

type StoreConfig struct {
	Driver           string // "postgres", "supabase" or "sqlite"
	PostgresDSN      string
	SupabaseURL      string
	SupabaseKey      string
	SupabasePassword string
	SupabaseDSN      string // optional explicit connection string
	SQLitePath       string
}

type WebhookConfig struct {
	Secret     string // Z-API shared secret; empty disables validation
	CronSecret string
	LinkSecret string // HS256 key for signed report links
}

type TranscriptionConfig struct {
	APIKey          string
	BaseURL         string
	PollInterval    time.Duration
	Timeout         time.Duration
	DefaultLanguage string
}

type SummarizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	UseMock bool
}

type NotifyConfig struct {
	TeamsWebhookURL  string
	ZAPIInstanceID   string
	ZAPIToken        string
	ZAPIClientToken  string
	TelegramBotToken string
	TelegramChatID   int64
}

type DigestConfig struct {
	RetentionDays  int
	MaxStartJitter time.Duration // spreads cron start times; zero disables
}

// Load reads a .env file when present and binds the rest from the
// environment.
func Load() (*Config, error) {
	// Missing .env is fine in deployed environments
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "0.0.0.0:8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("store_driver", "postgres")
	v.SetDefault("sqlite_path", "wadigest.db")
	v.SetDefault("gladia_api_url", "https://api.gladia.io/v2/transcription")
	v.SetDefault("gladia_poll_interval_ms", 2000)
	v.SetDefault("gladia_poll_timeout_ms", 60000)
	v.SetDefault("gladia_default_language", "pt")
	v.SetDefault("qwen_api_url", "https://dashscope-intl.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen_model", "qwen-turbo")
	v.SetDefault("retention_days", 7)
	v.SetDefault("digest_max_jitter_ms", 0)

	cfg := &Config{
		Server: ServerConfig{
			Addr:    v.GetString("listen_addr"),
			BaseURL: strings.TrimRight(v.GetString("base_url"), "/"),
		},
		Store: StoreConfig{
			Driver:           strings.ToLower(v.GetString("store_driver")),
			PostgresDSN:      v.GetString("database_url"),
			SupabaseURL:      v.GetString("supabase_url"),
			SupabaseKey:      v.GetString("supabase_anon_key"),
			SupabasePassword: v.GetString("supabase_db_password"),
			SupabaseDSN:      v.GetString("supabase_db_url"),
			SQLitePath:       v.GetString("sqlite_path"),
		},
		Webhook: WebhookConfig{
			Secret:     v.GetString("zapi_secret"),
			CronSecret: v.GetString("cron_secret"),
			LinkSecret: v.GetString("link_secret"),
		},
		Transcription: TranscriptionConfig{
			APIKey:          v.GetString("gladia_api_key"),
			BaseURL:         v.GetString("gladia_api_url"),
			PollInterval:    time.Duration(v.GetInt("gladia_poll_interval_ms")) * time.Millisecond,
			Timeout:         time.Duration(v.GetInt("gladia_poll_timeout_ms")) * time.Millisecond,
			DefaultLanguage: v.GetString("gladia_default_language"),
		},
		Summarizer: SummarizerConfig{
			APIKey:  v.GetString("qwen_api_key"),
			BaseURL: v.GetString("qwen_api_url"),
			Model:   v.GetString("qwen_model"),
			UseMock: v.GetBool("use_mock_ai"),
		},
		Notify: NotifyConfig{
			TeamsWebhookURL:  v.GetString("teams_webhook_url"),
			ZAPIInstanceID:   v.GetString("zapi_instance_id"),
			ZAPIToken:        v.GetString("zapi_token"),
			ZAPIClientToken:  v.GetString("zapi_client_token"),
			TelegramBotToken: v.GetString("telegram_bot_token"),
			TelegramChatID:   v.GetInt64("telegram_chat_id"),
		},
		Digest: DigestConfig{
			RetentionDays:  v.GetInt("retention_days"),
			MaxStartJitter: time.Duration(v.GetInt("digest_max_jitter_ms")) * time.Millisecond,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "supabase":
		if c.Store.SupabaseURL == "" || c.Store.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required when STORE_DRIVER=supabase")
		}
		if c.Store.SupabaseDSN == "" && c.Store.SupabasePassword == "" {
			return fmt.Errorf("SUPABASE_DB_URL or SUPABASE_DB_PASSWORD is required when STORE_DRIVER=supabase")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Transcription.PollInterval <= 0 {
		return fmt.Errorf("GLADIA_POLL_INTERVAL_MS must be positive")
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("GLADIA_POLL_TIMEOUT_MS must be positive")
	}
	if c.Digest.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	return nil
}
