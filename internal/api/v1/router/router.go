package router

import (
	"net/http"
	"strings"

	"captia/internal/api/v1/handler"
	"captia/internal/config"
	"captia/internal/metrics"
	"captia/internal/middleware"
	"captia/internal/pubsub"
	"captia/internal/repository"
	"captia/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Deps are the process-wide clients built once at startup and shared by every request.
type Deps struct {
	QuotaRepo repository.QuotaRepository
	// Publisher is nil when usage events are disabled.
	Publisher pubsub.Publisher
	Registry  *prometheus.Registry
	// Generator overrides the OpenAI generator built from config.
	Generator service.SummaryGenerator
}

func New(cfg *config.Config, deps Deps, logger zerolog.Logger) http.Handler {
	logger.Info().
		Str("environment", cfg.Environment).
		Str("quota_store", cfg.QuotaStore).
		Str("quota_enforcement", cfg.QuotaEnforcement).
		Msg("Router initialized")

	validate := handler.NewValidator()
	m := metrics.New(deps.Registry)

	generator := deps.Generator
	if generator == nil {
		generator = service.NewOpenAIGenerator(cfg, logger)
	}
	var usage service.UsageRecorder
	if deps.Publisher != nil && cfg.PubSubUsageTopic != "" {
		usage = service.NewUsageEventPublisher(deps.Publisher, cfg.PubSubUsageTopic)
	}

	quotaSvc := service.NewQuotaService(deps.QuotaRepo, cfg.QuotaEnforcement == config.EnforcementStrict, cfg.StoreTimeout(), m, logger)
	summarySvc := service.NewSummaryService(
		quotaSvc,
		generator,
		service.NewHubSpotClient(cfg.HubSpotBaseURL, cfg.CRMRequestTimeout()),
		usage,
		m,
		service.SummaryTimeouts{AI: cfg.AIRequestTimeout(), CRM: cfg.CRMRequestTimeout(), Usage: cfg.StoreTimeout()},
		logger,
	)
	stripeSvc := service.NewStripeService(cfg, deps.QuotaRepo, logger)
	oauth := service.NewHubSpotOAuth(cfg)

	upgradeURL := strings.TrimRight(cfg.AppBaseURL, "/") + "/pricing"
	summaryHandler := handler.NewSummaryHandler(summarySvc, validate, upgradeURL, logger)
	quotaHandler := handler.NewQuotaHandler(quotaSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, validate, logger)
	oauthHandler := handler.NewOAuthHandler(oauth, logger)
	healthHandler := handler.NewHealthHandler(deps.Registry, logger)

	mux := http.NewServeMux()

	// Create a subrouter for API v1
	apiV1Mux := http.NewServeMux()
	summaryHandler.RegisterRoutes(apiV1Mux)
	quotaHandler.RegisterRoutes(apiV1Mux)
	subscriptionHandler.RegisterRoutes(apiV1Mux)
	oauthHandler.RegisterRoutes(apiV1Mux)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	healthHandler.RegisterRoutes(mux)

	// Redirect /api/* to /v1/*. 308 keeps the method and body of POSTs.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		target := "/v1/" + rest
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
