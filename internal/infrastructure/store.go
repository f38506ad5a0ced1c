package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"wadigest/internal/config"
	"wadigest/internal/interfaces"
	"wadigest/internal/repository"
)

// OpenStore builds the message store selected by STORE_DRIVER and runs its
// migrations. The returned closer releases the underlying connections.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (interfaces.MessageStore, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		client, err := NewPostgresClient(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		closer := func() error {
			client.Pool.Close()
			return nil
		}
		return repository.NewMessageRepository(client.Pool), closer, nil

	case "supabase":
		client := NewSupabaseClient(SupabaseConfig{
			ProjectURL:       cfg.SupabaseURL,
			APIKey:           cfg.SupabaseKey,
			Password:         cfg.SupabasePassword,
			ConnectionString: cfg.SupabaseDSN,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connecting to supabase: %w", err)
		}
		store := repository.NewSQLMessageRepository(client.DB(), repository.DialectPostgres)
		if err := store.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("migrating supabase schema: %w", err)
		}
		return store, client.Close, nil

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite at %s: %w", cfg.SQLitePath, err)
		}
		// modernc's driver is not safe for concurrent writers
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("pinging sqlite: %w", err)
		}
		store := repository.NewSQLMessageRepository(db, repository.DialectSQLite)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrating sqlite schema: %w", err)
		}
		return store, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
