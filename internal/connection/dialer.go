package connection

import (
	"context"
	"fmt"

	"github.com/acqdte/tradestate/internal/config"
	"github.com/acqdte/tradestate/internal/store"
	"github.com/acqdte/tradestate/internal/store/firestore"
	"github.com/acqdte/tradestate/internal/store/postgres"
	"github.com/acqdte/tradestate/internal/store/sqlite"
)

// DialerFor returns the dialer for the configured state backend.
//
// Supported backends:
//
//	"firestore" - Cloud Firestore (default)
//	"postgres"  - PostgreSQL JSONB documents
//	"sqlite"    - local SQLite file
//	"memory"    - in-memory (ephemeral, for testing)
func DialerFor(cfg *config.Settings) (Dialer, error) {
	switch cfg.StateBackend {
	case config.BackendFirestore:
		fsCfg := firestore.Config{
			ProjectID:       cfg.ProjectID,
			Database:        cfg.Database,
			CredentialsPath: cfg.CredentialsPath,
		}
		return func(ctx context.Context) (store.Driver, error) {
			return firestore.Open(ctx, fsCfg)
		}, nil

	case config.BackendPostgres:
		pgCfg := postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Name:     cfg.Postgres.Name,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		}
		return func(ctx context.Context) (store.Driver, error) {
			return postgres.Open(ctx, pgCfg)
		}, nil

	case config.BackendSQLite:
		path := cfg.SQLitePath
		return func(ctx context.Context) (store.Driver, error) {
			return sqlite.Open(path)
		}, nil

	case config.BackendMemory:
		return func(ctx context.Context) (store.Driver, error) {
			return store.NewMemoryDriver(), nil
		}, nil
	}

	return nil, fmt.Errorf("unknown state backend: %q", cfg.StateBackend)
}
