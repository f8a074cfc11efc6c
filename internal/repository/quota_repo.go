package repository

import (
	"context"
	"errors"
	"time"

	"captia/internal/model"
)

var (
	// ErrSummaryLimitReached is returned by IncrementUsageIfBelow when a free user is already at the limit.
	ErrSummaryLimitReached = errors.New("summary_limit_reached")
	// ErrCustomerNotFound is returned when no record carries the given Stripe customer ID.
	ErrCustomerNotFound = errors.New("customer_not_found")
)

// QuotaRepository is the persistence side of the quota ledger. Every method is keyed by user ID
// except the webhook downgrade, which is keyed by Stripe customer ID.
type QuotaRepository interface {
	// GetQuota returns the user's record, or nil, nil when none exists. It never writes.
	GetQuota(ctx context.Context, userID string) (*model.UserQuota, error)
	// EnsureQuota creates a zeroed free record when none exists and returns the stored record.
	EnsureQuota(ctx context.Context, userID string) (*model.UserQuota, error)
	// IncrementUsage adds exactly one to summariesUsed with a store-level atomic increment,
	// creating the record with summariesUsed=1 when absent, and stamps lastUsedAt.
	IncrementUsage(ctx context.Context, userID string) (*model.UserQuota, error)
	// IncrementUsageIfBelow behaves like IncrementUsage but only when the user is pro or below limit.
	// Otherwise it returns the current record together with ErrSummaryLimitReached.
	IncrementUsageIfBelow(ctx context.Context, userID string, limit int) (*model.UserQuota, error)
	// ActivatePro merges the pro entitlement and billing linkage into the user's record.
	ActivatePro(ctx context.Context, userID, customerID, subscriptionID string, at time.Time) error
	// DeactivateProByCustomer clears the entitlement on the record linked to customerID and returns its user ID.
	DeactivateProByCustomer(ctx context.Context, customerID string, at time.Time) (string, error)
}
