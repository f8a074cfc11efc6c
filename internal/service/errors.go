package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrQuotaExceeded     = errors.New("quota_exceeded")
	ErrGenerationFailed  = errors.New("generation_failed")
	ErrStoreUnavailable  = errors.New("store_unavailable")
	ErrPersistenceFailed = errors.New("persistence_failed")
)

// QuotaExceededError reports a free user who has used up the free ceiling.
// It matches ErrQuotaExceeded with errors.Is.
type QuotaExceededError struct {
	SummariesUsed int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota_exceeded: %d of %d free summaries used", e.SummariesUsed, FreeSummaryLimit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
