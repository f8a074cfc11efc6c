package handler

import (
	"encoding/json"
	"net/http"

	"captia/internal/api/v1/dto"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, status int, msg string) {
	writeJSON(w, logger, status, dto.ErrorResponseDTO{Error: msg})
}

// writeServerError reports an unexpected failure with the cause in details.
func writeServerError(w http.ResponseWriter, logger zerolog.Logger, msg string, err error) {
	writeJSON(w, logger, http.StatusInternalServerError, dto.ErrorResponseDTO{Error: msg, Details: err.Error()})
}

func requireMethod(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}
