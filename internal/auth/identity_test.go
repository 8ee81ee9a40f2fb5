package auth

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage/memory"
)

func newIdentity(t *testing.T, clock *testClock) (*Identity, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tokens := NewTokenManager("test-secret", "fund-ledger", time.Hour, WithClock(clock.Now))
	return NewIdentity(store, tokens, decimal.NewFromInt(500), logging.NewSilent()), store
}

func registerInput(email string, roles ...string) RegisterInput {
	return RegisterInput{Name: "Ana Gomez", Email: email, Password: "s3cret-pass", Roles: roles}
}

func TestRegister_CustomerDefaults(t *testing.T) {
	identity, _ := newIdentity(t, newTestClock())

	user, err := identity.Register(context.Background(), registerInput("Ana@Example.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(500)), "balance = %s", user.Balance)
	assert.True(t, user.InitialBalance.Equal(user.Balance))
	assert.Equal(t, models.RoleSet{models.RoleCustomer}, user.Roles)
	assert.Equal(t, models.ChannelEmail, user.NotificationChannel)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.True(t, checkPassword(user.PasswordHash, "s3cret-pass"))
}

func TestRegister_AdminOnlyStartsAtZero(t *testing.T) {
	identity, _ := newIdentity(t, newTestClock())

	admin, err := identity.Register(context.Background(), registerInput("admin@example.com", "Admin"))
	require.NoError(t, err)
	assert.True(t, admin.Balance.IsZero(), "admin balance = %s", admin.Balance)
	assert.True(t, admin.HasRole(models.RoleAdmin))

	both, err := identity.Register(context.Background(), registerInput("both@example.com", "Admin", "Customer"))
	require.NoError(t, err)
	assert.True(t, both.Balance.Equal(decimal.NewFromInt(500)), "mixed roles keep the default balance")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	identity, _ := newIdentity(t, newTestClock())
	ctx := context.Background()

	_, err := identity.Register(ctx, registerInput("ana@example.com"))
	require.NoError(t, err)

	_, err = identity.Register(ctx, registerInput("ANA@example.com"))
	assert.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
}

func TestRegister_Validation(t *testing.T) {
	identity, _ := newIdentity(t, newTestClock())
	cases := map[string]RegisterInput{
		"missing name":    {Email: "a@example.com", Password: "long-enough"},
		"bad email":       {Name: "A", Email: "not-an-email", Password: "long-enough"},
		"short password":  {Name: "A", Email: "a@example.com", Password: "short"},
		"unknown role":    {Name: "A", Email: "a@example.com", Password: "long-enough", Roles: []string{"Root"}},
		"unknown channel": {Name: "A", Email: "a@example.com", Password: "long-enough", NotificationChannel: "Pigeon"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := identity.Register(context.Background(), in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	identity, _ := newIdentity(t, newTestClock())
	ctx := context.Background()
	registered, err := identity.Register(ctx, registerInput("ana@example.com"))
	require.NoError(t, err)

	cred, err := identity.Authenticate(ctx, " ANA@example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.Token)
	assert.Equal(t, time.Hour, cred.ExpiresAt.Sub(cred.IssuedAt))
	assert.Equal(t, registered.ID, cred.User.ID)

	resolved, err := identity.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, resolved.ID)

	_, err = identity.Authenticate(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = identity.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = identity.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestResolve_FailsClosed(t *testing.T) {
	clock := newTestClock()
	identity, _ := newIdentity(t, clock)
	ctx := context.Background()
	_, err := identity.Register(ctx, registerInput("ana@example.com"))
	require.NoError(t, err)

	cred, err := identity.Authenticate(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := identity.Resolve(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := identity.Resolve(ctx, "abc.def.ghi")
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("unknown subject", func(t *testing.T) {
		ghost, _, err := identity.tokens.Generate(models.User{ID: "ghost"})
		require.NoError(t, err)
		_, err = identity.Resolve(ctx, ghost)
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(time.Hour + time.Second)
		_, err := identity.Resolve(ctx, cred.Token)
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})
}

func TestRequireRole(t *testing.T) {
	admin := models.User{Roles: models.NewRoleSet(models.RoleAdmin)}
	customer := models.User{Roles: models.NewRoleSet(models.RoleCustomer)}

	assert.NoError(t, RequireRole(admin, models.RoleAdmin))
	assert.ErrorIs(t, RequireRole(customer, models.RoleAdmin), apperr.ErrForbidden)
	assert.ErrorIs(t, RequireRole(models.User{}, models.RoleCustomer), apperr.ErrForbidden)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), models.User{ID: "u1"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
