package handlers

import (
	"net/http"

	"github.com/hongminglow/fund-ledger/internal/funds"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/ledger"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/middleware"
	"github.com/hongminglow/fund-ledger/internal/models/dto"
)

// FundHandler serves the fund catalog and the subscribe/cancel transitions.
type FundHandler struct {
	catalog *funds.Service
	engine  *ledger.Engine
	log     *logging.Logger
}

// NewFundHandler constructs the handler.
func NewFundHandler(catalog *funds.Service, engine *ledger.Engine, log *logging.Logger) *FundHandler {
	return &FundHandler{catalog: catalog, engine: engine, log: log}
}

// Register attaches fund routes to the mux. Every route requires a bearer token.
func (h *FundHandler) Register(mux *http.ServeMux, authn middleware.Middleware) {
	mux.Handle("GET /funds", protected(authn, h.handleList))
	mux.Handle("POST /funds", protected(authn, h.handleCreate))
	mux.Handle("GET /funds/{id}", protected(authn, h.handleGet))
	mux.Handle("DELETE /funds/{id}", protected(authn, h.handleDelete))
	mux.Handle("POST /funds/{id}/subscribe", protected(authn, h.handleSubscribe))
	mux.Handle("POST /funds/{id}/cancel", protected(authn, h.handleCancel))
}

func (h *FundHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context())
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", list)
}

func (h *FundHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req dto.CreateFundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fund, err := h.catalog.Create(r.Context(), user, funds.CreateInput{
		Name:       req.Name,
		MinimumFee: req.MinimumFee,
		Category:   req.Category,
	})
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Fund created successfully", dto.CreateFundResponse{ID: fund.ID})
}

func (h *FundHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	fund, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", fund)
}

func (h *FundHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Fund deleted successfully", nil)
}

func (h *FundHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	receipt, err := h.engine.Subscribe(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Subscribed to "+receipt.Fund.Name, fundResponse(receipt))
}

func (h *FundHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	receipt, err := h.engine.Cancel(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Cancelled subscription to "+receipt.Fund.Name, fundResponse(receipt))
}

func fundResponse(receipt ledger.Receipt) dto.FundResponse {
	return dto.FundResponse{
		FundID:         receipt.Fund.ID,
		TransactionID:  receipt.Transaction.ID,
		CurrentBalance: receipt.Balance,
	}
}
