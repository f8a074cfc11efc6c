package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretRefPrefix marks a setting whose value lives in Secret Manager, e.g.
// OPENAI_API_KEY=sm://openai-api-key or sm://projects/p/secrets/openai-api-key/versions/3.
const SecretRefPrefix = "sm://"

// SecretAccessor reads the payload of a secret version by resource name.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
}

func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"FIREBASE_SERVICE_ACCOUNT": &c.FirebaseCredentials,
		"DB_CONNECTION_STRING":     &c.DBConnectionString,
		"OPENAI_API_KEY":           &c.OpenAIAPIKey,
		"HUBSPOT_CLIENT_SECRET":    &c.HubSpotClientSecret,
		"STRIPE_SECRET_KEY":        &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET":    &c.StripeWebhookSecret,
	}
}

// HasSecretRefs reports whether any secret setting points at Secret Manager.
func (c *Config) HasSecretRefs() bool {
	for _, v := range c.secretFields() {
		if strings.HasPrefix(*v, SecretRefPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every sm:// reference with the secret's payload. Short names resolve
// to the latest version in GCP_PROJECT_ID.
func (c *Config) ResolveSecrets(ctx context.Context, accessor SecretAccessor) error {
	for key, v := range c.secretFields() {
		ref, ok := strings.CutPrefix(*v, SecretRefPrefix)
		if !ok {
			continue
		}
		name := ref
		if !strings.HasPrefix(ref, "projects/") {
			if c.GCPProjectID == "" {
				return fmt.Errorf("%s: GCP_PROJECT_ID is required to resolve %q", key, *v)
			}
			name = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProjectID, ref)
		}
		secret, err := accessor.AccessSecret(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*v = secret
	}
	return nil
}
