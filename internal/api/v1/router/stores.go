package router

import (
	"context"
	"fmt"
	"strings"

	"captia/internal/config"
	"captia/internal/repository"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// OpenQuotaStore builds the quota repository selected by QUOTA_STORE. The returned close
// function releases the underlying client.
func OpenQuotaStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.QuotaRepository, func(), error) {
	switch cfg.QuotaStore {
	case config.StoreFirestore:
		var opts []option.ClientOption
		if cfg.FirebaseCredentials != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentials)))
		}
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		logger.Info().Str("collection", cfg.FirestoreCollection).Msg("Firestore quota store ready")
		return repository.NewFirestoreQuotaRepo(client, cfg.FirestoreCollection), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, postgresDSN(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open DB pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping DB: %w", err)
		}
		if err := repository.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("Database connection successful")
		return repository.NewPostgresQuotaRepo(pool), pool.Close, nil

	case config.StoreMemory:
		logger.Warn().Msg("Using in-memory quota store, usage is lost on restart")
		return repository.NewMemoryQuotaRepo(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported QUOTA_STORE %q", cfg.QuotaStore)
}

// postgresDSN disables SSL for local development when the connection string does not say otherwise.
func postgresDSN(cfg *config.Config) string {
	dsn := cfg.DBConnectionString
	if !cfg.IsDevelopment() || strings.Contains(dsn, "sslmode") {
		return dsn
	}
	separator := " "
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		separator = "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
	}
	return dsn + separator + "sslmode=disable"
}
