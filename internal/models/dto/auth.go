package dto

import (
	"time"

	"github.com/hongminglow/fund-ledger/internal/models"
)

type RegisterRequest struct {
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	Password            string   `json:"password"`
	Roles               []string `json:"roles"`
	NotificationChannel string   `json:"notification_channel"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identifier returns the email, falling back to the OAuth2 form "username" field.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
}
