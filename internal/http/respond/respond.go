package respond

import (
	"encoding/json"
	"net/http"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, code apperr.Code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	write(w, status, Envelope{Code: status, Error: string(code), Message: message})
}

// Err maps err onto its status and public message. Server-side failures are
// logged with their cause; the caller only sees the generic message.
func Err(w http.ResponseWriter, log *logging.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error().Err(err).Msg("request failed")
	}
	Error(w, status, apperr.CodeOf(err), apperr.PublicMessage(err))
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
