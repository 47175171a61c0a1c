package httpapi

import (
	"encoding/json"
	"net/http"

	"qcss/pkg/apperror"
	"qcss/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Warn("failed to encode response body", "error", err)
	}
}

// writeError maps an error onto its apperror status code (500 for anything
// that isn't one) and writes a small JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	status := apperror.StatusCode(err)
	logger.Log.Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
