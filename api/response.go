package api

import (
	"encoding/json"
	"net/http"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// writeJSON writes a JSON response with the given status code. Encoding
// errors after WriteHeader can only be logged; the status is already on
// the wire.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, errName, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: errName, Message: message})
}
