package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cashpeg/pegvault/internal/api"
	"github.com/cashpeg/pegvault/internal/chain"
	"github.com/cashpeg/pegvault/internal/config"
	"github.com/cashpeg/pegvault/internal/database"
	"github.com/cashpeg/pegvault/internal/export"
	"github.com/cashpeg/pegvault/internal/history"
	"github.com/cashpeg/pegvault/internal/oracle"
	"github.com/cashpeg/pegvault/internal/planner"
	"github.com/cashpeg/pegvault/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	app := &cli.App{
		Name:  "pegvault",
		Usage: "custodial vault keeper: watches the oracle price and plans withdrawal-only rebalances",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the keeper service: quote archiver, rebalance worker, HTTP API",
				Action: runServe,
			},
			{
				Name:   "plan",
				Usage:  "run a single planning cycle against the live oracle and indexer, without persisting",
				Action: runPlan,
			},
			{
				Name:      "decode-quote",
				Usage:     "decode a hex-encoded 16-byte oracle price payload",
				ArgsUsage: "<hex>",
				Action:    runDecodeQuote,
			},
			{
				Name:  "export",
				Usage: "export recorded cycles to an xlsx workbook or Google Sheets",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "xlsx output path", Value: "cycles.xlsx"},
					&cli.BoolFlag{Name: "sheets", Usage: "write to the configured Google spreadsheet instead"},
					&cli.IntFlag{Name: "limit", Usage: "max cycles to export", Value: export.DefaultExportLimit},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	pol, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Oracle pipeline
	oracleClient := oracle.NewClient(cfg.OracleURL, cfg.OraclePublicKey, pol.PriceScale,
		cfg.OracleRetryMax, cfg.OracleRetryDelay, cfg.OracleMinInterval)
	quoteRepo := oracle.NewPgRepository(pool)
	oracleSvc := oracle.NewService(oracleClient, quoteRepo, cfg.QuoteStaleThreshold)

	// Chain position reader
	indexer := chain.NewClient(cfg.IndexerURL, cfg.IndexerRetryMax, cfg.IndexerRetryDelay)
	positions := chain.NewPositionReader(indexer, pol)

	// Cycle runner (dry-run assembler until a signer is wired)
	cycleRepo := history.NewPgRepository(pool)
	runner := worker.NewCycleRunner(oracleSvc, positions, planner.New(pol), pol,
		cfg.KeeperAddress, cfg.PayoutAddress, cycleRepo, nil)

	// Workers
	quoteWorker := worker.NewQuoteWorker(oracleSvc, cfg.QuoteInterval)
	go quoteWorker.Run(ctx)

	rebalanceWorker := worker.NewRebalanceWorker(runner, cfg.RebalanceInterval)
	go rebalanceWorker.Run(ctx)

	// Optional live feed: pushes land in the same archive as the poller.
	if cfg.OracleWSURL != "" {
		go consumeFeed(ctx, cfg, pol.PriceScale, oracleSvc)
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, rebalance trigger is unprotected")
	}

	handler := api.NewHandler(positions, oracleSvc, cycleRepo, runner, pol)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// consumeFeed subscribes to the oracle relay websocket and archives
// every pushed quote. Reconnects with a flat delay until ctx ends.
func consumeFeed(ctx context.Context, cfg config.Config, priceScale int64, svc *oracle.Service) {
	feed := oracle.NewFeed(cfg.OracleWSURL, cfg.OraclePublicKey, priceScale)
	for {
		quotes, err := feed.Subscribe(ctx)
		if err != nil {
			slog.Error("oracle feed subscribe failed", "error", err)
		} else {
			for q := range quotes {
				if err := svc.ArchiveQuote(ctx, q); err != nil {
					slog.Error("failed to archive pushed quote", "error", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func runPlan(c *cli.Context) error {
	cfg := config.Load()

	pol, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	oracleClient := oracle.NewClient(cfg.OracleURL, cfg.OraclePublicKey, pol.PriceScale,
		cfg.OracleRetryMax, cfg.OracleRetryDelay, cfg.OracleMinInterval)
	oracleSvc := oracle.NewService(oracleClient, discardRepo{}, cfg.QuoteStaleThreshold)

	indexer := chain.NewClient(cfg.IndexerURL, cfg.IndexerRetryMax, cfg.IndexerRetryDelay)
	positions := chain.NewPositionReader(indexer, pol)

	runner := worker.NewCycleRunner(oracleSvc, positions, planner.New(pol), pol,
		cfg.KeeperAddress, cfg.PayoutAddress, memRepo{}, nil)

	rec, err := runner.RunCycle(c.Context)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runDecodeQuote(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: pegvault decode-quote <hex>")
	}

	q, err := oracle.DecodeHex(c.Args().First(), oracle.DefaultPriceScale)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"timestamp":       q.Timestamp,
		"time":            q.Time().UTC().Format(time.RFC3339),
		"messageSequence": q.MessageSequence,
		"dataSequence":    q.DataSequence,
		"priceRaw":        q.PriceRaw,
		"humanPrice":      q.HumanPrice(),
	})
}

func runExport(c *cli.Context) error {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	var writer export.RowWriter
	if c.Bool("sheets") {
		if cfg.SheetsSpreadsheetID == "" || cfg.SheetsCredentials == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON are required for --sheets")
		}
		writer, err = export.NewSheetsWriter(c.Context, cfg.SheetsSpreadsheetID, cfg.SheetsCredentials)
		if err != nil {
			return err
		}
	} else {
		writer = export.NewXLSXWriter(c.String("out"))
	}

	svc := export.NewService(history.NewPgRepository(pool), writer, c.Int("limit"))
	if err := svc.Export(c.Context); err != nil {
		return err
	}

	if !c.Bool("sheets") {
		fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// discardRepo satisfies the oracle repository for one-shot commands
// that never archive.
type discardRepo struct{}

func (discardRepo) Save(context.Context, oracle.Quote, time.Time) error { return nil }
func (discardRepo) Latest(context.Context) (oracle.ArchivedQuote, error) {
	return oracle.ArchivedQuote{}, oracle.ErrNoQuotes
}
func (discardRepo) List(context.Context, int) ([]oracle.ArchivedQuote, error) { return nil, nil }

// memRepo satisfies the history repository for the plan command, which
// reports its record on stdout instead of persisting it.
type memRepo struct{}

func (memRepo) Save(context.Context, history.Record) error { return nil }
func (memRepo) Latest(context.Context) (history.Record, error) {
	return history.Record{}, history.ErrNotFound
}
func (memRepo) GetByID(context.Context, uuid.UUID) (history.Record, error) {
	return history.Record{}, history.ErrNotFound
}
func (memRepo) List(context.Context, int) ([]history.Record, error) { return nil, nil }
