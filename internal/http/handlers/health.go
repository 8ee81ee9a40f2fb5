package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/logging"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports uptime and whether the ledger store answers.
type HealthHandler struct {
	store     Pinger
	driver    string
	startedAt time.Time
	log       *logging.Logger
}

// NewHealthHandler creates a health endpoint handler for the named storage driver.
func NewHealthHandler(store Pinger, driver string, startedAt time.Time, log *logging.Logger) *HealthHandler {
	return &HealthHandler{store: store, driver: driver, startedAt: startedAt, log: log}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error().Err(err).Str("storage", h.driver).Msg("storage ping failed")
		respond.Error(w, http.StatusServiceUnavailable, apperr.CodeInternal, "storage unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"status":  "ok",
		"storage": h.driver,
		"uptime":  time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
