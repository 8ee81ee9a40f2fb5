// Command fundctl runs maintenance tasks against the fund-ledger store.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&migrateCmd{}, "store")
	subcommands.Register(&reconcileCmd{}, "ledger")
	subcommands.Register(&createAdminCmd{}, "identity")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
