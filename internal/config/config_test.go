package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUOTA_STORE", "memory")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EnforcementStrict, cfg.QuotaEnforcement)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.InDelta(t, 0.7, cfg.OpenAITemperature, 1e-9)
	assert.EqualValues(t, 800, cfg.OpenAIMaxTokens)
	assert.Equal(t, "users", cfg.FirestoreCollection)
	assert.Equal(t, "https://api.hubapi.com", cfg.HubSpotBaseURL)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			QuotaStore:       StoreMemory,
			QuotaEnforcement: EnforcementSoft,
			OpenAIAPIKey:     "sk-test",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory store is self contained", mutate: func(c *Config) {}},
		{
			name:    "firestore needs a project",
			mutate:  func(c *Config) { c.QuotaStore = StoreFirestore },
			wantErr: "GCP_PROJECT_ID",
		},
		{
			name:    "postgres needs a connection string",
			mutate:  func(c *Config) { c.QuotaStore = StorePostgres },
			wantErr: "DB_CONNECTION_STRING",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.QuotaStore = "redis" },
			wantErr: "unsupported QUOTA_STORE",
		},
		{
			name:    "unknown enforcement",
			mutate:  func(c *Config) { c.QuotaEnforcement = "eventual" },
			wantErr: "unsupported QUOTA_ENFORCEMENT",
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.OpenAIAPIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "usage topic needs a project",
			mutate:  func(c *Config) { c.PubSubUsageTopic = "summary-usage" },
			wantErr: "PUBSUB_USAGE_TOPIC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
