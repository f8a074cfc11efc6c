package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"captia/internal/config"
	"captia/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrBillingNotConfigured = errors.New("billing_not_configured")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidEventPayload  = errors.New("invalid_event_payload")
)

// CheckoutSession is the part of a Stripe Checkout Session the caller needs.
type CheckoutSession struct {
	ID  string
	URL string
}

// StripeService manages Stripe integration
type StripeService struct {
	cfg       *config.Config
	quotaRepo repository.QuotaRepository
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, quotaRepo repository.QuotaRepository, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, quotaRepo: quotaRepo, now: time.Now, logger: lg}
}

// CreateCheckoutSession creates a subscription Checkout session for the pro plan
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, email string) (*CheckoutSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if s.cfg.StripeSecretKey == "" || s.cfg.StripePriceID == "" {
		return nil, ErrBillingNotConfigured
	}

	base := strings.TrimRight(s.cfg.AppBaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(s.cfg.StripePriceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:         stripe.String(base + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(base + "/pricing"),
		ClientReferenceID:  stripe.String(userID),
		Metadata:           map[string]string{"userId": userID},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe checkout session")
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("session_id", sess.ID).Msg("Checkout session created")
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// HandleWebhook verifies a Stripe webhook delivery and applies it to the quota ledger
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.cfg.StripeWebhookSecret == "" {
		return ErrBillingNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			return fmt.Errorf("%w: %w", ErrInvalidEventPayload, err)
		}
		return s.activatePro(ctx, &cs)
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			return fmt.Errorf("%w: %w", ErrInvalidEventPayload, err)
		}
		return s.deactivatePro(ctx, &ss)
	default:
		s.logger.Info().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	return nil
}

func (s *StripeService) activatePro(ctx context.Context, cs *stripe.CheckoutSession) error {
	userID := cs.Metadata["userId"]
	if userID == "" {
		userID = cs.ClientReferenceID
	}
	if userID == "" {
		s.logger.Error().Str("session_id", cs.ID).Msg("Missing userId in checkout session metadata and client_reference_id")
		return fmt.Errorf("%w: checkout session %s has no user", ErrInvalidEventPayload, cs.ID)
	}

	var customerID, subscriptionID string
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		subscriptionID = cs.Subscription.ID
	}

	if err := s.quotaRepo.ActivatePro(ctx, userID, customerID, subscriptionID, s.now()); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to activate pro on checkout.session.completed")
		return fmt.Errorf("activate pro: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("stripe_customer_id", customerID).Msg("User upgraded to pro")
	return nil
}

func (s *StripeService) deactivatePro(ctx context.Context, ss *stripe.Subscription) error {
	if ss.Customer == nil || ss.Customer.ID == "" {
		s.logger.Warn().Str("subscription_id", ss.ID).Msg("Deleted subscription has no customer, ignoring")
		return nil
	}
	customerID := ss.Customer.ID

	userID, err := s.quotaRepo.DeactivateProByCustomer(ctx, customerID, s.now())
	if errors.Is(err, repository.ErrCustomerNotFound) {
		s.logger.Warn().Str("stripe_customer_id", customerID).Msg("No user found for canceled subscription")
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("stripe_customer_id", customerID).Msg("Failed to downgrade user on customer.subscription.deleted")
		return fmt.Errorf("deactivate pro: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("subscription_id", ss.ID).Msg("Pro subscription canceled")
	return nil
}
