// Package handlers exposes the identity, catalog, ledger and reporting
// components over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/middleware"
	"github.com/hongminglow/fund-ledger/internal/models"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, apperr.CodeValidation, "invalid JSON payload")
		return false
	}
	return true
}

// caller returns the user stored by the authentication middleware. Routes
// wrapped by middleware.Authenticate always have one; a missing user fails closed.
func caller(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Err(w, nil, apperr.ErrInvalidToken)
	}
	return user, ok
}

func protected(authn middleware.Middleware, h http.HandlerFunc) http.Handler {
	return authn(h)
}
