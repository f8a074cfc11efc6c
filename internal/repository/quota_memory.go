package repository

import (
	"context"
	"sync"
	"time"

	"captia/internal/model"
)

// MemoryQuotaRepo keeps quota records in process memory. It backs QUOTA_STORE=memory for local
// development and the service and handler tests; it is not shared across instances.
type MemoryQuotaRepo struct {
	mu      sync.Mutex
	records map[string]model.UserQuota
	now     func() time.Time
}

// NewMemoryQuotaRepo creates an empty in-memory QuotaRepository.
func NewMemoryQuotaRepo() *MemoryQuotaRepo {
	return &MemoryQuotaRepo{
		records: make(map[string]model.UserQuota),
		now:     time.Now,
	}
}

// Seed stores a record as-is, replacing any existing one.
func (r *MemoryQuotaRepo) Seed(q model.UserQuota) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[q.UserID] = q
}

func (r *MemoryQuotaRepo) GetQuota(_ context.Context, userID string) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *MemoryQuotaRepo) EnsureQuota(_ context.Context, userID string) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[userID]
	if !ok {
		q = model.UserQuota{UserID: userID, CreatedAt: r.now().UTC()}
		r.records[userID] = q
	}
	return &q, nil
}

func (r *MemoryQuotaRepo) IncrementUsage(_ context.Context, userID string) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.incrementLocked(userID)
	return &q, nil
}

func (r *MemoryQuotaRepo) IncrementUsageIfBelow(_ context.Context, userID string, limit int) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.records[userID]; ok && !q.IsPro && q.SummariesUsed >= limit {
		return &q, ErrSummaryLimitReached
	}
	if _, ok := r.records[userID]; !ok && limit <= 0 {
		return &model.UserQuota{UserID: userID}, ErrSummaryLimitReached
	}
	q := r.incrementLocked(userID)
	return &q, nil
}

func (r *MemoryQuotaRepo) incrementLocked(userID string) model.UserQuota {
	now := r.now().UTC()
	q, ok := r.records[userID]
	if !ok {
		q = model.UserQuota{UserID: userID, CreatedAt: now}
	}
	q.SummariesUsed++
	q.LastUsedAt = &now
	r.records[userID] = q
	return q
}

func (r *MemoryQuotaRepo) ActivatePro(_ context.Context, userID, customerID, subscriptionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[userID]
	if !ok {
		q = model.UserQuota{UserID: userID, CreatedAt: at.UTC()}
	}
	upgradedAt := at.UTC()
	q.IsPro = true
	q.StripeCustomerID = customerID
	q.StripeSubscriptionID = subscriptionID
	q.UpgradedAt = &upgradedAt
	r.records[userID] = q
	return nil
}

func (r *MemoryQuotaRepo) DeactivateProByCustomer(_ context.Context, customerID string, at time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range r.records {
		if customerID == "" || q.StripeCustomerID != customerID {
			continue
		}
		canceledAt := at.UTC()
		q.IsPro = false
		q.CanceledAt = &canceledAt
		r.records[id] = q
		return id, nil
	}
	return "", ErrCustomerNotFound
}
