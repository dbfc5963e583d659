// Package cli provides the command-line interface for the textsync worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mkrawiec/textsync/internal/ai"
	"github.com/mkrawiec/textsync/internal/config"
	"github.com/mkrawiec/textsync/internal/engine"
	"github.com/mkrawiec/textsync/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	dryRun    bool
	batchSize int
	maxItems  int

	// Initialized in PersistentPreRunE
	cfg         *config.Config
	logger      *slog.Logger
	closeLogger func() error
	pool        *pgxpool.Pool
	st          store.Store
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "textsync",
	Short: "Synchronize and AI-correct text columns from external databases",
	Long: `Textsync mirrors a text column from an external database into a local
working copy, detects source-side changes by hashing, and runs an AI
correction pass over new and changed records.

Each invocation claims at most one task; run several workers in parallel
for throughput. External actors pause, cancel or resync tasks by flipping
the task status; the worker picks that up between pages.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, closeLogger = config.SetupLogger(cfg.Log)

		if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
			return err
		}

		pool, err = store.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		st = store.NewPostgresStore(pool)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pool != nil {
			pool.Close()
		}
		if closeLogger != nil {
			if err := closeLogger(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: closing log file: %v\n", err)
			}
		}
	},
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0, "page size for source fetches (default from BATCH_SIZE)")
	rootCmd.PersistentFlags().IntVar(&maxItems, "max-items", 0, "items per AI batch (default from MAX_ITEMS)")
}

// newEngine builds the engine and pipeline from the loaded config plus any
// flag overrides.
func newEngine() *engine.Engine {
	items := cfg.Engine.MaxItems
	if maxItems > 0 {
		items = maxItems
	}
	pipeline := ai.NewPipeline(st, cfg.AI, items, logger, ai.WithDryRun(dryRun))
	return engine.New(st, pipeline, cfg.Engine, logger,
		engine.WithDryRun(dryRun),
		engine.WithBatchSize(batchSize))
}
