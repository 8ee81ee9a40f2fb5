package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationChannel is how a user wants to be told about ledger activity.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "Email"
	ChannelSMS   NotificationChannel = "SMS"
)

// ParseNotificationChannel defaults to email when name is blank.
func ParseNotificationChannel(name string) (NotificationChannel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "email":
		return ChannelEmail, nil
	case "sms":
		return ChannelSMS, nil
	default:
		return "", fmt.Errorf("unknown notification channel %q", name)
	}
}

// User captures application-facing fields for an authenticated identity.
// Balance is only ever changed by the ledger engine.
type User struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Email               string              `json:"email"`
	PasswordHash        string              `json:"-"`
	Balance             decimal.Decimal     `json:"balance"`
	InitialBalance      decimal.Decimal     `json:"-"`
	Roles               RoleSet             `json:"roles"`
	NotificationChannel NotificationChannel `json:"notification_channel"`
	CreatedAt           time.Time           `json:"created_at"`
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role Role) bool {
	return u.Roles.Has(role)
}
