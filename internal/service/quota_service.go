package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"captia/internal/metrics"
	"captia/internal/model"
	"captia/internal/repository"

	"github.com/rs/zerolog"
)

// FreeSummaryLimit is the lifetime number of summaries a non-pro user may generate.
const FreeSummaryLimit = 5

// CanProceed applies the free ceiling to a quota snapshot.
func CanProceed(s model.QuotaSnapshot) bool {
	return s.IsPro || s.SummariesUsed < FreeSummaryLimit
}

// Remaining returns how many free summaries are left. It is not meaningful for pro users.
func Remaining(s model.QuotaSnapshot) int {
	return max(0, FreeSummaryLimit-s.SummariesUsed)
}

// QuotaService is the quota ledger: it reads and counts usage against the free ceiling.
type QuotaService interface {
	// Peek reads the user's usage without creating a record; an absent user reads as (0, false).
	Peek(ctx context.Context, userID string) (model.QuotaSnapshot, error)
	// Check is Peek that also creates the record on first sight.
	Check(ctx context.Context, userID string) (model.QuotaSnapshot, error)
	// Record counts one summary against the user and returns the post-increment snapshot.
	Record(ctx context.Context, userID string) (model.QuotaSnapshot, error)
}

type quotaService struct {
	repo    repository.QuotaRepository
	strict  bool
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewQuotaService creates a QuotaService. With strict set, Record re-checks the ceiling inside the
// store's increment so concurrent requests cannot push a free user past FreeSummaryLimit; without it
// Record is a plain atomic increment and concurrent requests may overshoot.
func NewQuotaService(repo repository.QuotaRepository, strict bool, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) QuotaService {
	lg := logger.With().Str("service", "QuotaService").Logger()
	return &quotaService{repo: repo, strict: strict, timeout: timeout, metrics: m, logger: lg}
}

func (s *quotaService) Peek(ctx context.Context, userID string) (model.QuotaSnapshot, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.repo.GetQuota(ctx, userID)
	if err != nil {
		return model.QuotaSnapshot{}, s.storeError(err, userID, "peek")
	}
	return q.Snapshot(), nil
}

func (s *quotaService) Check(ctx context.Context, userID string) (model.QuotaSnapshot, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.repo.EnsureQuota(ctx, userID)
	if err != nil {
		return model.QuotaSnapshot{}, s.storeError(err, userID, "check")
	}
	return q.Snapshot(), nil
}

func (s *quotaService) Record(ctx context.Context, userID string) (model.QuotaSnapshot, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	if !s.strict {
		q, err := s.repo.IncrementUsage(ctx, userID)
		if err != nil {
			return model.QuotaSnapshot{}, s.storeError(err, userID, "increment")
		}
		return q.Snapshot(), nil
	}

	q, err := s.repo.IncrementUsageIfBelow(ctx, userID, FreeSummaryLimit)
	if errors.Is(err, repository.ErrSummaryLimitReached) {
		snap := q.Snapshot()
		s.logger.Warn().
			Str("user_id", userID).
			Int("summaries_used", snap.SummariesUsed).
			Msg("Conditional increment rejected, free ceiling reached by a concurrent request")
		return snap, &QuotaExceededError{SummariesUsed: snap.SummariesUsed}
	}
	if err != nil {
		return model.QuotaSnapshot{}, s.storeError(err, userID, "increment")
	}
	return q.Snapshot(), nil
}

func (s *quotaService) storeError(err error, userID, op string) error {
	s.metrics.QuotaStoreErrors.Inc()
	s.logger.Error().Err(err).Str("user_id", userID).Str("op", op).Msg("Quota store operation failed")
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
