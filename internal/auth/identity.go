package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Identity registers users, authenticates them and resolves bearer tokens
// back to user records.
type Identity struct {
	users          storage.UserStore
	tokens         *TokenManager
	defaultBalance decimal.Decimal
	log            *logging.Logger
}

// NewIdentity constructs the identity service. New customers start with
// defaultBalance.
func NewIdentity(users storage.UserStore, tokens *TokenManager, defaultBalance decimal.Decimal, log *logging.Logger) *Identity {
	return &Identity{
		users:          users,
		tokens:         tokens,
		defaultBalance: defaultBalance,
		log:            log.Component("identity"),
	}
}

// RegisterInput is the data needed to create a user.
type RegisterInput struct {
	Name                string
	Email               string
	Password            string
	Roles               []string
	NotificationChannel string
}

// Credential is the result of a successful login.
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	User      models.User
}

// Register creates a user. A role set of exactly {Admin} starts with a zero
// balance; everyone else gets the default balance.
func (i *Identity) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return models.User{}, apperr.Validationf("name and email are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, apperr.Validationf("email %q is not valid", in.Email)
	}
	if len(strings.TrimSpace(in.Password)) < 8 || !utf8.ValidString(in.Password) {
		return models.User{}, apperr.Validationf("password must be at least 8 characters")
	}
	roles, err := models.ParseRoleSet(in.Roles)
	if err != nil {
		return models.User{}, apperr.Validationf("%v", err)
	}
	channel, err := models.ParseNotificationChannel(in.NotificationChannel)
	if err != nil {
		return models.User{}, apperr.Validationf("%v", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.CodeInternal, "failed to hash password", err)
	}

	balance := i.defaultBalance
	if roles.AdminOnly() {
		balance = decimal.Zero
	}
	user := models.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Balance:             balance,
		InitialBalance:      balance,
		Roles:               roles,
		NotificationChannel: channel,
	}
	created, err := i.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			i.log.Warn().Str("email", email).Msg("registration failed: email already exists")
			return models.User{}, apperr.ErrDuplicateIdentity
		}
		return models.User{}, apperr.Wrap(apperr.CodeInternal, "failed to create user", err)
	}
	i.log.Info().Str("user_id", created.ID).Strs("roles", created.Roles.Strings()).Msg("user registered")
	return created, nil
}

// Authenticate checks an email/password pair and mints a token on success.
func (i *Identity) Authenticate(ctx context.Context, email, password string) (Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Credential{}, apperr.ErrInvalidCredentials
	}
	user, err := i.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			checkPassword(string(dummyHash), password)
			i.log.Warn().Str("email", email).Msg("authentication failed: user not found")
			return Credential{}, apperr.ErrInvalidCredentials
		}
		return Credential{}, apperr.Wrap(apperr.CodeInternal, "failed to fetch user", err)
	}
	if !checkPassword(user.PasswordHash, password) {
		i.log.Warn().Str("email", email).Msg("authentication failed: incorrect password")
		return Credential{}, apperr.ErrInvalidCredentials
	}
	token, expires, err := i.tokens.Generate(user)
	if err != nil {
		return Credential{}, apperr.Wrap(apperr.CodeInternal, "failed to generate token", err)
	}
	i.log.Info().Str("user_id", user.ID).Msg("authentication successful")
	return Credential{Token: token, IssuedAt: expires.Add(-i.tokens.TTL()), ExpiresAt: expires, User: user}, nil
}

// Resolve verifies a bearer token and loads its subject. Every failure,
// including store errors, is reported as InvalidToken.
func (i *Identity) Resolve(ctx context.Context, token string) (models.User, error) {
	if strings.TrimSpace(token) == "" {
		return models.User{}, apperr.ErrInvalidToken
	}
	claims, err := i.tokens.Parse(token)
	if err != nil {
		i.log.Debug().Err(err).Msg("token rejected")
		return models.User{}, apperr.ErrInvalidToken
	}
	user, err := i.users.FindUserByID(ctx, claims.Subject)
	if err != nil {
		i.log.Warn().Err(err).Str("subject", claims.Subject).Msg("token subject could not be resolved")
		return models.User{}, apperr.ErrInvalidToken
	}
	return user, nil
}
