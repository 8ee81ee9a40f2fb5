package handlers

import (
	"net/http"

	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/middleware"
	"github.com/hongminglow/fund-ledger/internal/reporting"
)

// TransactionHandler serves the caller's own transaction history.
type TransactionHandler struct {
	view *reporting.View
	log  *logging.Logger
}

// NewTransactionHandler constructs the handler.
func NewTransactionHandler(view *reporting.View, log *logging.Logger) *TransactionHandler {
	return &TransactionHandler{view: view, log: log}
}

// Register attaches the reporting routes to the mux.
func (h *TransactionHandler) Register(mux *http.ServeMux, authn middleware.Middleware) {
	mux.Handle("GET /transactions", protected(authn, h.handleList))
	mux.Handle("GET /transactions/reconciliation", protected(authn, h.handleReconcile))
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	details, err := reporting.Collect(h.view.ListTransactions(r.Context(), user.ID))
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", details)
}

func (h *TransactionHandler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	rec, err := h.view.Reconcile(r.Context(), user.ID)
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]any{
		"reconciliation": rec,
		"balanced":       rec.Balanced(),
	})
}
