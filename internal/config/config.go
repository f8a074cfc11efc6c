package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported quota stores.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Supported quota enforcement modes.
const (
	EnforcementStrict = "strict"
	EnforcementSoft   = "soft"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AppBaseURL  string `envconfig:"APP_BASE_URL" default:"https://captia.vercel.app"`

	// Quota ledger settings
	QuotaStore          string `envconfig:"QUOTA_STORE" default:"firestore"`
	QuotaEnforcement    string `envconfig:"QUOTA_ENFORCEMENT" default:"strict"`
	StoreTimeoutSec     int    `envconfig:"STORE_TIMEOUT_SEC" default:"10"`
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	FirebaseCredentials string `envconfig:"FIREBASE_SERVICE_ACCOUNT"`
	FirestoreCollection string `envconfig:"FIRESTORE_COLLECTION" default:"users"`
	DBConnectionString  string `envconfig:"DB_CONNECTION_STRING"`

	// AI provider settings
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel         string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITemperature   float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
	OpenAIMaxTokens     int64   `envconfig:"OPENAI_MAX_TOKENS" default:"800"`
	AIRequestTimeoutSec int     `envconfig:"AI_REQUEST_TIMEOUT_SEC" default:"60"`

	// CRM settings
	HubSpotBaseURL       string `envconfig:"HUBSPOT_BASE_URL" default:"https://api.hubapi.com"`
	HubSpotClientID      string `envconfig:"HUBSPOT_CLIENT_ID"`
	HubSpotClientSecret  string `envconfig:"HUBSPOT_CLIENT_SECRET"`
	HubSpotRedirectURI   string `envconfig:"REDIRECT_URI"`
	CRMRequestTimeoutSec int    `envconfig:"CRM_REQUEST_TIMEOUT_SEC" default:"15"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripePriceID       string `envconfig:"STRIPE_PRICE_ID"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	// Usage events are published only when a topic is configured.
	PubSubUsageTopic string `envconfig:"PUBSUB_USAGE_TOPIC"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that the selected backends depend on.
func (c *Config) Validate() error {
	switch c.QuotaStore {
	case StoreFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when QUOTA_STORE=%s", StoreFirestore)
		}
	case StorePostgres:
		if c.DBConnectionString == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required when QUOTA_STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported QUOTA_STORE %q", c.QuotaStore)
	}

	switch c.QuotaEnforcement {
	case EnforcementStrict, EnforcementSoft:
	default:
		return fmt.Errorf("unsupported QUOTA_ENFORCEMENT %q", c.QuotaEnforcement)
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.PubSubUsageTopic != "" && c.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when PUBSUB_USAGE_TOPIC is set")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSec) * time.Second
}

func (c *Config) AIRequestTimeout() time.Duration {
	return time.Duration(c.AIRequestTimeoutSec) * time.Second
}

func (c *Config) CRMRequestTimeout() time.Duration {
	return time.Duration(c.CRMRequestTimeoutSec) * time.Second
}
