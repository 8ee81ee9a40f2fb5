// Package notify tells users about ledger activity on their preferred channel.
package notify

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
)

// Notice describes a committed subscribe or cancel.
type Notice struct {
	UserID   string
	Name     string
	Email    string
	Channel  models.NotificationChannel
	Kind     models.TransactionKind
	FundID   string
	FundName string
	Amount   decimal.Decimal
	Balance  decimal.Decimal
}

// Notifier delivers notices. Delivery happens after the ledger commit, so a
// failure never affects the balance.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// LogNotifier records notices as structured log lines.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier returns a Notifier backed by log.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.Component("notify")}
}

func (l *LogNotifier) Notify(_ context.Context, n Notice) error {
	l.log.Info().
		Str("user_id", n.UserID).
		Str("channel", string(n.Channel)).
		Str("kind", string(n.Kind)).
		Str("fund", n.FundName).
		Str("amount", n.Amount.String()).
		Str("balance", n.Balance.String()).
		Msg(message(n))
	return nil
}

func message(n Notice) string {
	if n.Kind == models.KindOpen {
		return "Subscribed to " + n.FundName
	}
	return "Cancelled subscription to " + n.FundName
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) error { return nil }
