package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"captia/internal/api/v1/dto"
	"captia/internal/middleware"
	"captia/internal/model"
	"captia/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	messageSavedToTimeline = "AI summary saved to timeline"
	messageGenerated       = "AI summary generated"
)

// SummaryHandler serves the quota-gated summary workflow.
type SummaryHandler struct {
	summarySvc service.SummaryService
	validate   *validator.Validate
	upgradeURL string
	logger     zerolog.Logger
}

// NewSummaryHandler creates a new SummaryHandler. upgradeURL is sent to users at the free ceiling.
func NewSummaryHandler(summarySvc service.SummaryService, v *validator.Validate, upgradeURL string, logger zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc, validate: v, upgradeURL: upgradeURL, logger: logger}
}

// RegisterRoutes registers the summary endpoints.
func (h *SummaryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/summaries", h.Generate)
}

// Generate godoc
// @Summary Generate a meeting summary
// @Description Checks the user's quota, generates an AI summary of the transcript, saves it to the CRM timeline when accessToken and contactId are given, and counts it against the quota.
// @Tags summaries
// @Accept json
// @Produce json
// @Param summary body dto.SummaryRequestDTO true "Summary request"
// @Success 200 {object} dto.SummaryResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "missing or invalid field"
// @Failure 403 {object} dto.QuotaExceededDTO "free ceiling reached"
// @Failure 500 {object} dto.ErrorResponseDTO "generation or quota store failure"
// @Router /summaries [post]
func (h *SummaryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req dto.SummaryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, validationMessage(err))
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Missing required field: transcript")
		return
	}

	res, err := h.summarySvc.Generate(r.Context(), model.SummaryRequest{
		UserID:      req.UserID,
		ContactID:   strings.TrimSpace(req.ContactID),
		Transcript:  req.Transcript,
		AccessToken: req.AccessToken,
		Source:      req.Source,
		RequestID:   middleware.RequestID(r.Context()),
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	resp := dto.SummaryResponseDTO{
		Status:             "success",
		Message:            messageGenerated,
		Summary:            res.Summary,
		SummariesUsed:      res.SummariesUsed,
		SummariesRemaining: dto.Remaining{Unlimited: res.IsPro, Count: res.Remaining},
		TokensUsed:         res.TokensUsed,
		Cost:               res.Cost,
	}
	if res.Timeline != nil {
		resp.Message = messageSavedToTimeline
		resp.EngagementID = res.Timeline.EngagementID
		resp.ContactID = res.Timeline.ContactID
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SummaryHandler) writeGenerateError(w http.ResponseWriter, err error) {
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.As(err, &quotaErr):
		writeJSON(w, h.logger, http.StatusForbidden, dto.QuotaExceededDTO{
			Error:         "Summary limit reached",
			Message:       "You have used all free summaries. Upgrade to Pro for unlimited summaries.",
			SummariesUsed: quotaErr.SummariesUsed,
			NeedsUpgrade:  true,
			UpgradeURL:    h.upgradeURL,
		})
	case errors.Is(err, service.ErrGenerationFailed):
		writeServerError(w, h.logger, "Failed to generate summary with AI", err)
	case errors.Is(err, service.ErrStoreUnavailable):
		writeServerError(w, h.logger, "Failed to update usage quota", err)
	default:
		h.logger.Error().Err(err).Msg("unexpected summary workflow error")
		writeServerError(w, h.logger, "Internal server error", err)
	}
}
