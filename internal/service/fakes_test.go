package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"captia/internal/metrics"
	"captia/internal/model"
	"captia/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type fakeGenerator struct {
	calls  atomic.Int32
	err    error
	tokens int64
	// hook runs inside Generate before it returns.
	hook func(ctx context.Context) error
}

func (g *fakeGenerator) Generate(ctx context.Context, transcript string) (*model.Generation, error) {
	g.calls.Add(1)
	if g.hook != nil {
		if err := g.hook(ctx); err != nil {
			return nil, err
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	tokens := g.tokens
	if tokens == 0 {
		tokens = 300
	}
	return &model.Generation{Text: FrameSummary("summary of: "+transcript, transcript), TokensUsed: tokens}, nil
}

type fakeTimeline struct {
	mu    sync.Mutex
	calls int
	err   error
	notes []string
}

func (f *fakeTimeline) CreateNote(_ context.Context, accessToken, contactID, body string, _ time.Time) (*model.TimelineNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.notes = append(f.notes, body)
	return &model.TimelineNote{EngagementID: "9001", ContactID: contactID}, nil
}

type fakeUsage struct {
	mu     sync.Mutex
	events []model.UsageEvent
	err    error
}

func (f *fakeUsage) RecordUsage(_ context.Context, event model.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

// failingIncrementRepo serves reads from memory but fails every increment.
type failingIncrementRepo struct {
	*repository.MemoryQuotaRepo
}

var errStoreDown = errors.New("store down")

func (r failingIncrementRepo) IncrementUsage(context.Context, string) (*model.UserQuota, error) {
	return nil, errStoreDown
}

func (r failingIncrementRepo) IncrementUsageIfBelow(context.Context, string, int) (*model.UserQuota, error) {
	return nil, errStoreDown
}

type harness struct {
	repo      *repository.MemoryQuotaRepo
	generator *fakeGenerator
	timeline  *fakeTimeline
	usage     *fakeUsage
	metrics   *metrics.Metrics
	svc       SummaryService
}

func newHarness(strict bool) *harness {
	h := &harness{
		repo:      repository.NewMemoryQuotaRepo(),
		generator: &fakeGenerator{},
		timeline:  &fakeTimeline{},
		usage:     &fakeUsage{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	h.svc = h.build(h.repo, strict)
	return h
}

func (h *harness) build(repo repository.QuotaRepository, strict bool) SummaryService {
	quota := NewQuotaService(repo, strict, time.Second, h.metrics, zerolog.Nop())
	return NewSummaryService(quota, h.generator, h.timeline, h.usage, h.metrics,
		SummaryTimeouts{AI: time.Second, CRM: time.Second, Usage: time.Second}, zerolog.Nop())
}

func (h *harness) used(userID string) int {
	q, _ := h.repo.GetQuota(context.Background(), userID)
	if q == nil {
		return -1
	}
	return q.SummariesUsed
}
