package handler

import (
	"net/http"

	"captia/internal/api/v1/dto"
	"captia/internal/service"

	"github.com/rs/zerolog"
)

type OAuthHandler struct {
	oauth  service.OAuthExchanger
	logger zerolog.Logger
}

func NewOAuthHandler(oauth service.OAuthExchanger, logger zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, logger: logger}
}

func (h *OAuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/oauth/callback", h.callback)
}

// callback godoc
// @Summary Complete the CRM OAuth install
// @Description Exchanges the authorization code for CRM access and refresh tokens.
// @Tags oauth
// @Produce json
// @Param code query string true "Authorization code"
// @Success 200 {object} dto.OAuthTokenResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Router /oauth/callback [get]
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, http.StatusBadRequest, "No code provided")
		return
	}

	tokens, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("OAuth code exchange failed")
		writeJSON(w, h.logger, http.StatusBadRequest, dto.ErrorResponseDTO{Error: "OAuth exchange failed", Details: err.Error()})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.OAuthTokenResponseDTO{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}
