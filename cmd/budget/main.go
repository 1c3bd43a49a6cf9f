/*
main.go - Command-line client for the bucket ledger

PURPOSE:
  Runs ledger operations directly against the SQLite database, without the
  HTTP server. Every command opens the store, does its work in one engine
  call, and closes it again.

COMMANDS:
  income <amount>                   Add money to the free pool
  allocate <bucket> <amount>        Free pool -> bucket
  expense <bucket> <amount>         Spend from a bucket
  transfer <from> <to> <amount>     Bucket -> bucket
  deposit <amount>                  Legacy: raise the total balance
  payment <bucket> <amount>         Legacy: pay from a bucket and the total
  buckets list|create|rename|set-balance|delete
  transactions [--bucket] [--type] [--limit]
  balance                           Ledger summary

  A <bucket> argument is a bucket id or an unambiguous bucket name.

GLOBAL FLAGS:
  --config     Config file path
  --db         SQLite database path
  --log-level  debug, info, warn, error (default: warn)
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/bucket-ledger/budget"
	"github.com/warp/bucket-ledger/config"
	"github.com/warp/bucket-ledger/logging"
	"github.com/warp/bucket-ledger/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries what every subcommand needs once the root pre-run has opened
// the store.
type cli struct {
	v       *viper.Viper
	cfgFile string
	stderr  io.Writer

	store  *sqlite.Store
	engine *budget.Engine
}

// execute builds the command tree, runs args and releases the store.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{v: config.New(), stderr: stderr}
	c.v.SetDefault("log.level", "warn")

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if c.store != nil {
		if cerr := c.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "budget",
		Short:             "Bucket budgeting ledger",
		Long:              "Track money in named buckets, a free-money pool and an append-only transaction log.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: ./budget.yaml or $HOME/.config/budget/budget.yaml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	_ = c.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		c.incomeCmd(),
		c.allocateCmd(),
		c.expenseCmd(),
		c.transferCmd(),
		c.depositCmd(),
		c.paymentCmd(),
		c.bucketsCmd(),
		c.transactionsCmd(),
		c.balanceCmd(),
	)
	return root
}

// open loads config and opens the ledger.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(c.stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.store = store
	c.engine = budget.NewEngine(store, budget.WithLogger(logger))
	return c.engine.Resume(cmd.Context())
}
