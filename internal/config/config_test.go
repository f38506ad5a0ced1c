package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Driver: "postgres", PostgresDSN: "postgres://localhost/wadigest"},
		Transcription: TranscriptionConfig{
			PollInterval: 2 * time.Second,
			Timeout:      time.Minute,
		},
		Digest: DigestConfig{RetentionDays: 7},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid postgres", func(c *Config) {}, false},
		{"postgres without DSN", func(c *Config) { c.Store.PostgresDSN = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, true},
		{
			"supabase with password",
			func(c *Config) {
				c.Store = StoreConfig{
					Driver:           "supabase",
					SupabaseURL:      "https://abc.supabase.co",
					SupabaseKey:      "anon",
					SupabasePassword: "pw",
				}
			},
			false,
		},
		{
			"supabase with explicit DSN",
			func(c *Config) {
				c.Store = StoreConfig{
					Driver:      "supabase",
					SupabaseURL: "https://abc.supabase.co",
					SupabaseKey: "anon",
					SupabaseDSN: "postgres://db",
				}
			},
			false,
		},
		{
			"supabase without credentials",
			func(c *Config) {
				c.Store = StoreConfig{Driver: "supabase", SupabaseURL: "https://abc.supabase.co"}
			},
			true,
		},
		{
			"supabase without db access",
			func(c *Config) {
				c.Store = StoreConfig{
					Driver:      "supabase",
					SupabaseURL: "https://abc.supabase.co",
					SupabaseKey: "anon",
				}
			},
			true,
		},
		{
			"sqlite",
			func(c *Config) { c.Store = StoreConfig{Driver: "sqlite", SQLitePath: "test.db"} },
			false,
		},
		{
			"sqlite without path",
			func(c *Config) { c.Store = StoreConfig{Driver: "sqlite"} },
			true,
		},
		{"zero poll interval", func(c *Config) { c.Transcription.PollInterval = 0 }, true},
		{"zero timeout", func(c *Config) { c.Transcription.Timeout = 0 }, true},
		{"zero retention", func(c *Config) { c.Digest.RetentionDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Transcription.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v", cfg.Transcription.PollInterval)
	}
	if cfg.Transcription.Timeout != time.Minute {
		t.Errorf("Timeout = %v", cfg.Transcription.Timeout)
	}
	if cfg.Transcription.DefaultLanguage != "pt" {
		t.Errorf("DefaultLanguage = %q", cfg.Transcription.DefaultLanguage)
	}
	if cfg.Digest.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d", cfg.Digest.RetentionDays)
	}
}

func TestLoadTrimsBaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("BASE_URL", "https://reports.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "https://reports.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
}
