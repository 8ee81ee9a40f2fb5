package handlers

import (
	"mime"
	"net/http"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/middleware"
	"github.com/hongminglow/fund-ledger/internal/models/dto"
)

// AuthHandler owns the register, login and profile endpoints.
type AuthHandler struct {
	identity *auth.Identity
	limiter  *middleware.RateLimiter
	log      *logging.Logger
}

// NewAuthHandler constructs the handler. limiter guards register and login.
func NewAuthHandler(identity *auth.Identity, limiter *middleware.RateLimiter, log *logging.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, limiter: limiter, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, authn middleware.Middleware) {
	mux.Handle("POST /auth/register", h.limiter.Middleware(http.HandlerFunc(h.handleRegister)))
	mux.Handle("POST /auth/login", h.limiter.Middleware(http.HandlerFunc(h.handleLogin)))
	mux.Handle("GET /auth/me", protected(authn, h.handleMe))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.identity.Register(r.Context(), auth.RegisterInput{
		Name:                req.Name,
		Email:               req.Email,
		Password:            req.Password,
		Roles:               req.Roles,
		NotificationChannel: req.NotificationChannel,
	})
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "User registered successfully", user)
}

// handleLogin accepts JSON or the OAuth2 password form (username = email).
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			respond.Error(w, http.StatusBadRequest, apperr.CodeValidation, "invalid form payload")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	} else if !decodeJSON(w, r, &req) {
		return
	}

	cred, err := h.identity.Authenticate(r.Context(), req.Identifier(), req.Password)
	if err != nil {
		respond.Err(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{
		AccessToken: cred.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(cred.ExpiresAt.Sub(cred.IssuedAt).Seconds()),
		ExpiresAt:   cred.ExpiresAt,
		User:        cred.User,
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, "ok", user)
}
