package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/config"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/reporting"
	"github.com/hongminglow/fund-ledger/internal/storage"
	"github.com/hongminglow/fund-ledger/internal/storage/open"
)

type env struct {
	cfg   config.Config
	log   *logging.Logger
	store storage.Store
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, "console")
	store, err := open.Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

// migrateCmd applies the schema. Opening the Postgres store migrates it.
type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the database schema" }
func (*migrateCmd) Usage() string {
	return `migrate:
  Apply schema migrations to DATABASE_URL.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()
	e.log.Info().Str("storage", e.cfg.StorageDriver).Msg("schema is up to date")
	return subcommands.ExitSuccess
}

// reconcileCmd replays every ledger against its user's balance.
type reconcileCmd struct {
	userID string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "check that each balance matches its ledger" }
func (*reconcileCmd) Usage() string {
	return `reconcile [-user <id>]:
  Verify initial_balance - sum(Open) + sum(Close) == balance for every user.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "only reconcile this user id")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()
	return c.run(ctx, e)
}

func (c *reconcileCmd) run(ctx context.Context, e *env) subcommands.ExitStatus {
	var err error
	ids := []string{c.userID}
	if c.userID == "" {
		if ids, err = e.store.ListUserIDs(ctx); err != nil {
			e.log.Error().Err(err).Msg("list users")
			return subcommands.ExitFailure
		}
	}

	view := reporting.NewView(e.store, e.cfg.Currency, e.log)
	status := subcommands.ExitSuccess
	for _, id := range ids {
		rec, err := view.Reconcile(ctx, id)
		if err != nil {
			e.log.Error().Err(err).Str("user_id", id).Msg("reconcile failed")
			status = subcommands.ExitFailure
			continue
		}
		event := e.log.Info()
		if !rec.Balanced() {
			event = e.log.Error()
			status = subcommands.ExitFailure
		}
		event.Str("user_id", id).
			Str("initial", rec.Initial.String()).
			Str("opened", rec.Opened.String()).
			Str("closed", rec.Closed.String()).
			Str("expected", rec.Expected.String()).
			Str("actual", rec.Actual.String()).
			Int("entries", rec.Entries).
			Bool("balanced", rec.Balanced()).
			Msg("reconciled")
	}
	return status
}

// createAdminCmd registers an administrator without going through the API.
type createAdminCmd struct {
	name, email, password string
}

func (*createAdminCmd) Name() string     { return "create-admin" }
func (*createAdminCmd) Synopsis() string { return "register a user holding only the Admin role" }
func (*createAdminCmd) Usage() string {
	return `create-admin -name <name> -email <email> -password <password>:
  Register an administrator. Administrators start with a zero balance.
`
}

func (c *createAdminCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.email, "email", "", "login email")
	f.StringVar(&c.password, "password", "", "password (at least 8 characters)")
}

func (c *createAdminCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()
	return c.run(ctx, e, os.Stdout)
}

func (c *createAdminCmd) run(ctx context.Context, e *env, out io.Writer) subcommands.ExitStatus {
	tokens := auth.NewTokenManager(e.cfg.JWTSecret, e.cfg.JWTIssuer, e.cfg.JWTTTL)
	identity := auth.NewIdentity(e.store, tokens, e.cfg.DefaultBalance, e.log)
	user, err := identity.Register(ctx, auth.RegisterInput{
		Name:     c.name,
		Email:    c.email,
		Password: c.password,
		Roles:    []string{"Admin"},
	})
	if err != nil {
		e.log.Error().Err(err).Msg("create admin")
		return subcommands.ExitFailure
	}
	fmt.Fprintln(out, user.ID)
	return subcommands.ExitSuccess
}
