package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"captia/internal/metrics"
	"captia/internal/model"

	"github.com/rs/zerolog"
)

// SummaryService runs the quota-gated summary workflow.
type SummaryService interface {
	// Generate checks the user's quota, generates a summary and counts it against the quota.
	// When the request carries CRM credentials the summary is then written to the contact's timeline.
	Generate(ctx context.Context, req model.SummaryRequest) (*model.SummaryResult, error)
}

// SummaryTimeouts bounds each external call made by the workflow.
type SummaryTimeouts struct {
	AI    time.Duration
	CRM   time.Duration
	Usage time.Duration
}

type summaryService struct {
	quota     QuotaService
	generator SummaryGenerator
	timeline  TimelineWriter
	usage     UsageRecorder
	metrics   *metrics.Metrics
	timeouts  SummaryTimeouts
	now       func() time.Time
	logger    zerolog.Logger
}

// NewSummaryService creates a SummaryService. usage may be nil when usage events are disabled.
func NewSummaryService(
	quota QuotaService,
	generator SummaryGenerator,
	timeline TimelineWriter,
	usage UsageRecorder,
	m *metrics.Metrics,
	timeouts SummaryTimeouts,
	logger zerolog.Logger,
) SummaryService {
	lg := logger.With().Str("service", "SummaryService").Logger()
	return &summaryService{
		quota:     quota,
		generator: generator,
		timeline:  timeline,
		usage:     usage,
		metrics:   m,
		timeouts:  timeouts,
		now:       time.Now,
		logger:    lg,
	}
}

func (s *summaryService) Generate(ctx context.Context, req model.SummaryRequest) (*model.SummaryResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is required", ErrInvalidRequest)
	}

	// A caller that disconnects does not abort external calls already under way.
	ctx = context.WithoutCancel(ctx)
	logCtx := s.logger.With().Str("user_id", req.UserID).Str("source", req.Source)
	if req.RequestID != "" {
		logCtx = logCtx.Str("request_id", req.RequestID)
	}
	log := logCtx.Logger()

	before, err := s.quota.Peek(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !CanProceed(before) {
		s.metrics.QuotaBlocked.Inc()
		log.Info().Int("summaries_used", before.SummariesUsed).Msg("Summary blocked, free ceiling reached")
		return nil, &QuotaExceededError{SummariesUsed: before.SummariesUsed}
	}

	gen, err := s.generate(ctx, req.Transcript)
	if err != nil {
		s.metrics.GenerationFailures.Inc()
		log.Error().Err(err).Msg("Summary generation failed")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	// The increment comes before the CRM write so a request that loses the last free slot
	// leaves nothing on the contact's timeline.
	after, recordErr := s.quota.Record(ctx, req.UserID)
	if recordErr != nil {
		s.logOutcome(log, req, gen, nil, nil, after, recordErr)
		if errors.Is(recordErr, ErrQuotaExceeded) {
			s.metrics.QuotaBlocked.Inc()
		}
		return nil, recordErr
	}

	note, persistErr := s.persist(ctx, req, gen.Text)
	s.logOutcome(log, req, gen, note, persistErr, after, nil)

	s.metrics.SummariesGenerated.Inc()
	s.metrics.AITokensUsed.Add(float64(gen.TokensUsed))
	s.recordUsage(ctx, log, req, gen, note, after)

	return &model.SummaryResult{
		Summary:       gen.Text,
		TokensUsed:    gen.TokensUsed,
		Cost:          EstimateCost(gen.TokensUsed),
		SummariesUsed: after.SummariesUsed,
		IsPro:         after.IsPro,
		Remaining:     Remaining(after),
		Timeline:      note,
	}, nil
}

func (s *summaryService) generate(ctx context.Context, transcript string) (*model.Generation, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeouts.AI)
	defer cancel()
	return s.generator.Generate(ctx, transcript)
}

// persist is best-effort. Its error never reaches the caller.
func (s *summaryService) persist(ctx context.Context, req model.SummaryRequest, text string) (*model.TimelineNote, error) {
	if !req.WantsTimeline() || s.timeline == nil {
		return nil, nil
	}
	ctx, cancel := withOptionalTimeout(ctx, s.timeouts.CRM)
	defer cancel()

	note, err := s.timeline.CreateNote(ctx, req.AccessToken, req.ContactID, text, s.now())
	if err != nil {
		s.metrics.TimelinePersistFailures.WithLabelValues(persistFailureReason(err)).Inc()
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return note, nil
}

func (s *summaryService) recordUsage(ctx context.Context, log zerolog.Logger, req model.SummaryRequest, gen *model.Generation, note *model.TimelineNote, after model.QuotaSnapshot) {
	if s.usage == nil {
		return
	}
	ctx, cancel := withOptionalTimeout(ctx, s.timeouts.Usage)
	defer cancel()

	event := model.UsageEvent{
		UserID:        req.UserID,
		SummariesUsed: after.SummariesUsed,
		TokensUsed:    gen.TokensUsed,
		Source:        req.Source,
		GeneratedAt:   s.now().UTC(),
	}
	if note != nil {
		event.EngagementID = note.EngagementID
	}
	if err := s.usage.RecordUsage(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish usage event")
	}
}

// logOutcome is the one place where the generation and persistence results meet.
func (s *summaryService) logOutcome(
	log zerolog.Logger,
	req model.SummaryRequest,
	gen *model.Generation,
	note *model.TimelineNote,
	persistErr error,
	after model.QuotaSnapshot,
	recordErr error,
) {
	ev := log.Info()
	if persistErr != nil || recordErr != nil {
		ev = log.Warn()
	}
	ev = ev.Int64("tokens_used", gen.TokensUsed).Bool("timeline_requested", req.WantsTimeline())
	if note != nil {
		ev = ev.Str("engagement_id", note.EngagementID)
	}
	if persistErr != nil {
		ev = ev.AnErr("persist_error", persistErr)
	}
	if recordErr != nil {
		ev = ev.AnErr("record_error", recordErr)
	} else {
		ev = ev.Int("summaries_used", after.SummariesUsed).Bool("is_pro", after.IsPro)
	}
	ev.Msg("Summary workflow finished")
}

func persistFailureReason(err error) string {
	var statusErr *CRMStatusError
	switch {
	case errors.Is(err, ErrInvalidContactID):
		return metrics.ReasonInvalidContact
	case errors.As(err, &statusErr):
		return metrics.ReasonCRMStatus
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonTimeout
	default:
		return metrics.ReasonTransport
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
