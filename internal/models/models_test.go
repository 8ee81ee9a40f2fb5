package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleSet(t *testing.T) {
	set, err := ParseRoleSet(nil)
	require.NoError(t, err)
	assert.Equal(t, RoleSet{RoleCustomer}, set)

	set, err = ParseRoleSet([]string{"customer", "ADMIN", "Admin"})
	require.NoError(t, err)
	assert.Equal(t, RoleSet{RoleAdmin, RoleCustomer}, set)
	assert.False(t, set.AdminOnly())
	assert.True(t, set.Has(RoleAdmin))
	assert.Equal(t, []string{"Admin", "Customer"}, set.Strings())

	set, err = ParseRoleSet([]string{"admin"})
	require.NoError(t, err)
	assert.True(t, set.AdminOnly())

	_, err = ParseRoleSet([]string{"root"})
	assert.Error(t, err)
}

func TestParseNotificationChannel(t *testing.T) {
	ch, err := ParseNotificationChannel("")
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, ch)

	ch, err = ParseNotificationChannel("sms")
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, ch)

	_, err = ParseNotificationChannel("fax")
	assert.Error(t, err)
}

func TestTransactionKindDelta(t *testing.T) {
	fee := decimal.NewFromInt(75)
	assert.True(t, KindOpen.Delta(fee).Equal(decimal.NewFromInt(-75)))
	assert.True(t, KindClose.Delta(fee).Equal(fee))
	assert.True(t, KindOpen.Valid())
	assert.False(t, TransactionKind("Transfer").Valid())
}
