// Command recon is the pipeline CLI: it ingests clearing feed files into
// the staging store and runs reconciliation passes against the bank feed.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/recon-api/internal/alerting"
	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/database"
	"github.com/ksred/recon-api/internal/ingest"
	"github.com/ksred/recon-api/internal/reconciliation"
)

func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&ingestCmd{}, "pipeline")
	subcommands.Register(&reconcileCmd{}, "pipeline")

	flag.Parse()

	// Cancellation is cooperative: the loader honors it between batches.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(int(subcommands.Execute(ctx)))
}

type ingestCmd struct {
	chunkSize int
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "Ingest a clearing feed file into the staging store." }
func (*ingestCmd) Usage() string {
	return `ingest [-chunk-size n] <file>:
  Read the semicolon-delimited feed file in batches and upsert each batch
  into the staging table. Row-level failures are skipped and reported;
  storage failures abort the run with a non-zero exit.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.chunkSize, "chunk-size", 0, "rows per batch (default from INGEST_CHUNK_SIZE)")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		zlog.Error().Msg("ingest requires exactly one file argument")
		return subcommands.ExitUsageError
	}

	cfg := config.Load()
	if c.chunkSize > 0 {
		cfg.Ingest.ChunkSize = c.chunkSize
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to initialize database")
		return subcommands.ExitFailure
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Error().Err(err).Msg("failed to close database")
		}
	}()

	service, err := ingest.NewService(db, cfg.Ingest)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to initialize ingest service")
		return subcommands.ExitFailure
	}

	result, err := service.Run(ctx, f.Arg(0))
	if err != nil {
		zlog.Error().Err(err).Msg("ingest run failed")
		return subcommands.ExitFailure
	}

	// Row failures degrade gracefully; they are reported but do not fail
	// the run.
	for _, failure := range result.Failures {
		zlog.Warn().
			Int("line", failure.Line).
			Str("key", failure.Key).
			Str("reason", failure.Reason).
			Msg("row skipped")
	}

	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	threshold string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "Run one reconciliation pass and dispatch alerts." }
func (*reconcileCmd) Usage() string {
	return `reconcile [-threshold x]:
  Classify the joined bank/exchange dataset, filter critical alerts against
  the threshold, and render the alert report. Notification failures never
  affect the exit code.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.threshold, "threshold", "", "critical alert threshold (default from ALERT_THRESHOLD)")
}

func (c *reconcileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()
	if c.threshold != "" {
		parsed, err := decimal.NewFromString(c.threshold)
		if err != nil || parsed.IsNegative() {
			zlog.Error().Str("threshold", c.threshold).Msg("threshold must be a non-negative decimal")
			return subcommands.ExitUsageError
		}
		cfg.Alerting.Threshold = parsed
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to initialize database")
		return subcommands.ExitFailure
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Error().Err(err).Msg("failed to close database")
		}
	}()

	var notifier alerting.Notifier
	if cfg.Email.Enabled {
		notifier = alerting.NewEmailNotifier(cfg.Email)
	}

	service := reconciliation.NewService(db, cfg.Alerting.Threshold, alerting.NewDispatcher(notifier))
	if _, err := service.Run(); err != nil {
		zlog.Error().Err(err).Msg("reconciliation run failed")
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
