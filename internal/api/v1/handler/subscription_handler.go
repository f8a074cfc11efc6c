package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"captia/internal/api/v1/dto"
	"captia/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = 65536

// SubscriptionHandler handles the pro upgrade checkout and the Stripe webhook.
type SubscriptionHandler struct {
	stripeSvc *service.StripeService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(stripeSvc *service.StripeService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{stripeSvc: stripeSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/checkout", h.Checkout)
	mux.HandleFunc("/webhooks/stripe", h.Webhook)
}

// Checkout godoc
// @Summary Initiate a Stripe Checkout session for the pro plan
// @Description Creates a subscription Checkout session and returns its ID and URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param checkout body dto.CheckoutRequestDTO true "Checkout request"
// @Success 200 {object} dto.CheckoutResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "missing userId"
// @Failure 500 {object} dto.ErrorResponseDTO "failed to create checkout session"
// @Router /checkout [post]
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Missing userId or invalid userEmail")
		return
	}

	sess, err := h.stripeSvc.CreateCheckoutSession(r.Context(), req.UserID, req.UserEmail)
	if err != nil {
		if errors.Is(err, service.ErrBillingNotConfigured) {
			h.logger.Error().Msg("checkout requested but Stripe is not configured")
		}
		writeServerError(w, h.logger, "Failed to create checkout session", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.CheckoutResponseDTO{SessionID: sess.ID, URL: sess.URL})
}

// Webhook godoc
// @Summary Receive Stripe webhook events
// @Description Verifies the Stripe-Signature header and applies subscription changes to the user's quota record.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookAckDTO
// @Failure 400 {object} dto.ErrorResponseDTO "signature verification failed"
// @Failure 500 {object} dto.ErrorResponseDTO "failed to process event"
// @Router /webhooks/stripe [post]
func (h *SubscriptionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		writeError(w, h.logger, http.StatusBadRequest, "failed to read payload")
		return
	}

	err = h.stripeSvc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, h.logger, http.StatusOK, dto.WebhookAckDTO{Received: true})
	case errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrInvalidEventPayload):
		writeError(w, h.logger, http.StatusBadRequest, "Webhook Error: "+err.Error())
	default:
		writeServerError(w, h.logger, "Webhook processing failed", err)
	}
}
