package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fund-ledger/internal/config"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
	"github.com/hongminglow/fund-ledger/internal/storage/memory"
)

func memoryEnv() (*env, *memory.Store) {
	store := memory.NewStore()
	return &env{
		cfg: config.Config{
			StorageDriver:  config.DriverMemory,
			JWTSecret:      "test-secret",
			JWTIssuer:      "fund-ledger",
			JWTTTL:         time.Hour,
			DefaultBalance: decimal.NewFromInt(500),
			Currency:       "COP",
		},
		log:   logging.NewSilent(),
		store: store,
	}, store
}

func seedCustomer(t *testing.T, store *memory.Store, email string, initial, balance int64) models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), models.User{
		Name:           "Ana",
		Email:          email,
		Balance:        decimal.NewFromInt(balance),
		InitialBalance: decimal.NewFromInt(initial),
		Roles:          models.NewRoleSet(models.RoleCustomer),
	})
	require.NoError(t, err)
	return user
}

func TestReconcile_Balanced(t *testing.T) {
	e, store := memoryEnv()
	user := seedCustomer(t, store, "ana@example.com", 500, 500)
	_, err := store.ApplyEntry(context.Background(), storage.Entry{
		UserID: user.ID, FundID: "f1", Kind: models.KindOpen, Amount: decimal.NewFromInt(75),
	})
	require.NoError(t, err)

	assert.Equal(t, subcommands.ExitSuccess, (&reconcileCmd{}).run(context.Background(), e))
	assert.Equal(t, subcommands.ExitSuccess, (&reconcileCmd{userID: user.ID}).run(context.Background(), e))
}

func TestReconcile_Unbalanced(t *testing.T) {
	e, store := memoryEnv()
	seedCustomer(t, store, "ana@example.com", 500, 500)
	drifted := seedCustomer(t, store, "luis@example.com", 500, 400)

	assert.Equal(t, subcommands.ExitFailure, (&reconcileCmd{}).run(context.Background(), e))
	assert.Equal(t, subcommands.ExitFailure, (&reconcileCmd{userID: drifted.ID}).run(context.Background(), e))
}

func TestReconcile_UnknownUser(t *testing.T) {
	e, _ := memoryEnv()
	assert.Equal(t, subcommands.ExitFailure, (&reconcileCmd{userID: "ghost"}).run(context.Background(), e))
}

func TestCreateAdmin(t *testing.T) {
	e, store := memoryEnv()
	var out bytes.Buffer
	cmd := &createAdminCmd{name: "Root", email: "root@example.com", password: "s3cret-pass"}

	require.Equal(t, subcommands.ExitSuccess, cmd.run(context.Background(), e, &out))
	id := strings.TrimSpace(out.String())
	user, err := store.FindUserByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, user.Roles.AdminOnly())
	assert.True(t, user.Balance.IsZero())

	assert.Equal(t, subcommands.ExitFailure, cmd.run(context.Background(), e, &out), "duplicate email")

	short := &createAdminCmd{name: "Root", email: "other@example.com", password: "short"}
	assert.Equal(t, subcommands.ExitFailure, short.run(context.Background(), e, &out))
}

func TestExecute_MemoryDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", config.DriverMemory)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEFAULT_BALANCE", "")

	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	assert.Equal(t, subcommands.ExitSuccess, (&reconcileCmd{}).Execute(context.Background(), fs))
	assert.Equal(t, subcommands.ExitSuccess, (&migrateCmd{}).Execute(context.Background(), fs))

	t.Setenv("JWT_SECRET", "")
	assert.Equal(t, subcommands.ExitFailure, (&reconcileCmd{}).Execute(context.Background(), fs))
}
