package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"captia/internal/api/v1/dto"
	"captia/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type QuotaHandler struct {
	quotaSvc service.QuotaService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewQuotaHandler(quotaSvc service.QuotaService, v *validator.Validate, logger zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{quotaSvc: quotaSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 quota routes
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/quota", h.checkQuota)
}

// checkQuota godoc
// @Summary Check a user's summary quota
// @Description Returns whether the user can generate another summary. Creates the quota record on first use.
// @Tags quota
// @Accept json
// @Produce json
// @Param quota body dto.QuotaRequestDTO true "Quota request"
// @Success 200 {object} dto.QuotaResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 500 {object} dto.ErrorResponseDTO
// @Router /quota [post]
func (h *QuotaHandler) checkQuota(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req dto.QuotaRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Missing userId")
		return
	}

	snap, err := h.quotaSvc.Check(r.Context(), req.UserID)
	if err != nil {
		writeServerError(w, h.logger, "Failed to check quota", err)
		return
	}

	canGenerate := service.CanProceed(snap)
	writeJSON(w, h.logger, http.StatusOK, dto.QuotaResponseDTO{
		CanGenerate:        canGenerate,
		SummariesUsed:      snap.SummariesUsed,
		SummariesRemaining: dto.Remaining{Unlimited: snap.IsPro, Count: service.Remaining(snap)},
		IsPro:              snap.IsPro,
		NeedsUpgrade:       !canGenerate,
	})
}
