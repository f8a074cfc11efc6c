package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"captia/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var quotaSchema = []string{`
	CREATE TABLE IF NOT EXISTS user_quotas (
		user_id                TEXT PRIMARY KEY,
		summaries_used         INTEGER NOT NULL DEFAULT 0 CHECK (summaries_used >= 0),
		is_pro                 BOOLEAN NOT NULL DEFAULT FALSE,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at           TIMESTAMPTZ,
		stripe_customer_id     TEXT,
		stripe_subscription_id TEXT,
		upgraded_at            TIMESTAMPTZ,
		canceled_at            TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS user_quotas_stripe_customer_id_idx ON user_quotas (stripe_customer_id)`,
}

const quotaColumns = `user_id, summaries_used, is_pro, created_at, last_used_at,
	stripe_customer_id, stripe_subscription_id, upgraded_at, canceled_at`

type postgresQuotaRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresQuotaRepo creates a QuotaRepository backed by the user_quotas table.
func NewPostgresQuotaRepo(pool *pgxpool.Pool) QuotaRepository {
	return &postgresQuotaRepo{pool: pool}
}

// EnsurePostgresSchema creates the user_quotas table when it does not exist.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range quotaSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating user_quotas schema: %w", err)
		}
	}
	return nil
}

// GetQuota returns the user's record, or nil when none exists.
func (r *postgresQuotaRepo) GetQuota(ctx context.Context, userID string) (*model.UserQuota, error) {
	q := `SELECT ` + quotaColumns + ` FROM user_quotas WHERE user_id = $1`
	quota, err := scanQuota(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch quota for user %s: %w", userID, err)
	}
	return quota, nil
}

// EnsureQuota inserts a zeroed record when none exists and returns the stored record.
func (r *postgresQuotaRepo) EnsureQuota(ctx context.Context, userID string) (*model.UserQuota, error) {
	const insertQ = `
		INSERT INTO user_quotas (user_id, summaries_used, is_pro, created_at)
		VALUES ($1, 0, FALSE, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insertQ, userID); err != nil {
		return nil, fmt.Errorf("ensure quota for user %s: %w", userID, err)
	}
	quota, err := r.GetQuota(ctx, userID)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return nil, fmt.Errorf("ensure quota for user %s: record missing after insert", userID)
	}
	return quota, nil
}

// IncrementUsage upserts the record and adds one to summaries_used in a single statement.
func (r *postgresQuotaRepo) IncrementUsage(ctx context.Context, userID string) (*model.UserQuota, error) {
	q := `
		INSERT INTO user_quotas (user_id, summaries_used, is_pro, created_at, last_used_at)
		VALUES ($1, 1, FALSE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET summaries_used = user_quotas.summaries_used + 1,
			last_used_at = NOW()
		RETURNING ` + quotaColumns
	quota, err := scanQuota(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, fmt.Errorf("increment usage for user %s: %w", userID, err)
	}
	return quota, nil
}

// IncrementUsageIfBelow re-checks the ceiling inside the upsert's conflict clause, so the row lock
// taken by ON CONFLICT serializes concurrent callers for the same user.
func (r *postgresQuotaRepo) IncrementUsageIfBelow(ctx context.Context, userID string, limit int) (*model.UserQuota, error) {
	if limit <= 0 {
		current, err := r.GetQuota(ctx, userID)
		if err != nil {
			return nil, err
		}
		if current == nil || !current.IsPro {
			if current == nil {
				current = &model.UserQuota{UserID: userID}
			}
			return current, ErrSummaryLimitReached
		}
		return r.IncrementUsage(ctx, userID)
	}

	q := `
		INSERT INTO user_quotas (user_id, summaries_used, is_pro, created_at, last_used_at)
		VALUES ($1, 1, FALSE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET summaries_used = user_quotas.summaries_used + 1,
			last_used_at = NOW()
		WHERE user_quotas.is_pro OR user_quotas.summaries_used < $2
		RETURNING ` + quotaColumns
	quota, err := scanQuota(r.pool.QueryRow(ctx, q, userID, limit))
	if err == nil {
		return quota, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conditional increment for user %s: %w", userID, err)
	}

	current, err := r.GetQuota(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &model.UserQuota{UserID: userID}
	}
	return current, ErrSummaryLimitReached
}

func (r *postgresQuotaRepo) ActivatePro(ctx context.Context, userID, customerID, subscriptionID string, at time.Time) error {
	const q = `
		INSERT INTO user_quotas (user_id, summaries_used, is_pro, created_at, stripe_customer_id, stripe_subscription_id, upgraded_at)
		VALUES ($1, 0, TRUE, NOW(), NULLIF($2, ''), NULLIF($3, ''), $4)
		ON CONFLICT (user_id) DO UPDATE
		SET is_pro = TRUE,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			upgraded_at = EXCLUDED.upgraded_at
	`
	if _, err := r.pool.Exec(ctx, q, userID, customerID, subscriptionID, at.UTC()); err != nil {
		return fmt.Errorf("activate pro for user %s: %w", userID, err)
	}
	return nil
}

func (r *postgresQuotaRepo) DeactivateProByCustomer(ctx context.Context, customerID string, at time.Time) (string, error) {
	const q = `
		UPDATE user_quotas
		SET is_pro = FALSE,
			canceled_at = $2
		WHERE user_id = (
			SELECT user_id FROM user_quotas WHERE stripe_customer_id = $1 LIMIT 1
		)
		RETURNING user_id
	`
	var userID string
	if err := r.pool.QueryRow(ctx, q, customerID, at.UTC()).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCustomerNotFound
		}
		return "", fmt.Errorf("deactivate pro for stripe customer %s: %w", customerID, err)
	}
	return userID, nil
}

func scanQuota(row pgx.Row) (*model.UserQuota, error) {
	var (
		q              model.UserQuota
		customerID     *string
		subscriptionID *string
	)
	err := row.Scan(
		&q.UserID,
		&q.SummariesUsed,
		&q.IsPro,
		&q.CreatedAt,
		&q.LastUsedAt,
		&customerID,
		&subscriptionID,
		&q.UpgradedAt,
		&q.CanceledAt,
	)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		q.StripeCustomerID = *customerID
	}
	if subscriptionID != nil {
		q.StripeSubscriptionID = *subscriptionID
	}
	return &q, nil
}
