package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "captia"

// Persistence failure reasons used as the "reason" label.
const (
	ReasonInvalidContact = "invalid_contact"
	ReasonCRMStatus      = "crm_status"
	ReasonTimeout        = "timeout"
	ReasonTransport      = "transport"
)

// Metrics holds the collectors for the summary workflow.
type Metrics struct {
	SummariesGenerated      prometheus.Counter
	QuotaBlocked            prometheus.Counter
	GenerationFailures      prometheus.Counter
	TimelinePersistFailures *prometheus.CounterVec
	AITokensUsed            prometheus.Counter
	QuotaStoreErrors        prometheus.Counter
}

// New registers the workflow collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SummariesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_generated_total",
			Help:      "Summaries generated and counted against a user's quota.",
		}),
		QuotaBlocked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_blocked_total",
			Help:      "Summary requests rejected because the free ceiling was reached.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "AI provider calls that failed.",
		}),
		TimelinePersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_persist_failures_total",
			Help:      "CRM timeline writes that failed, by reason.",
		}, []string{"reason"}),
		AITokensUsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_tokens_used_total",
			Help:      "Tokens reported by the AI provider for successful generations.",
		}),
		QuotaStoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_store_errors_total",
			Help:      "Quota store operations that failed.",
		}),
	}
}
