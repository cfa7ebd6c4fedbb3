package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ledgerline/ledgerline/internal/archive"
	"github.com/ledgerline/ledgerline/internal/classify"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/linker"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/metrics"
	"github.com/ledgerline/ledgerline/internal/pipeline"
	"github.com/ledgerline/ledgerline/internal/scan"
	"github.com/ledgerline/ledgerline/internal/schema"
	"github.com/ledgerline/ledgerline/internal/split"
)

func main() {
	log := logger.New()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	inputDir := flag.String("input-dir", "", "directory to scan for PDF documents (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration failed")
	}
	if *inputDir != "" {
		cfg.Paths.InputDir = *inputDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("creating model client failed")
	}

	store, cleanup, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("opening ledger failed")
	}
	defer cleanup()

	paths, err := scan.Discover(cfg.Paths.InputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("scanning input directory failed")
	}
	if len(paths) == 0 {
		log.Info().Str("input_dir", cfg.Paths.InputDir).Msg("no documents to process")
		return
	}

	orchestrator := pipeline.New(
		classify.New(client),
		extract.New(client),
		split.New(client, cfg.Splitter),
		schema.New(client),
		store,
		linker.New(store, client, cfg.Linker),
		archive.New(cfg.Archive, cfg.Paths),
		metrics.New(),
	)

	batchID := uuid.NewString()
	log.Info().Str("batch_id", batchID).Int("documents", len(paths)).Msg("starting run")

	summary := orchestrator.Run(ctx, paths, batchID)

	fmt.Printf("Processed %d documents (%d failed), stored %d entries (%d fragments failed), linked %d pairs in %s.\n",
		summary.DocumentsProcessed, summary.DocumentsFailed,
		summary.FragmentsStored, summary.FragmentsFailed,
		summary.EntriesLinked, summary.Elapsed.Round(time.Millisecond))
}

func openLedger(ctx context.Context, cfg config.LedgerConfig) (ledger.Ledger, func(), error) {
	if cfg.Backend == "bigquery" {
		bq, err := ledger.NewBigQuery(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return bq, func() { bq.Close() }, nil
	}
	return ledger.NewMemory(), func() {}, nil
}
