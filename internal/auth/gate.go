package auth

import (
	"context"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/models"
)

// RequireRole admits user only if it holds role.
func RequireRole(user models.User, role models.Role) error {
	if !user.HasRole(role) {
		return apperr.ErrForbidden
	}
	return nil
}

type contextKey int

const userKey contextKey = iota

// WithUser stores the resolved caller in ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the caller stored by WithUser.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}
