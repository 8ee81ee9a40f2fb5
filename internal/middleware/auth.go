package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/models"
)

// TokenResolver turns a bearer token into a user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (models.User, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func Authenticate(resolver TokenResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, apperr.CodeInvalidToken, "not authenticated")
				return
			}
			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				respond.Err(w, nil, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
