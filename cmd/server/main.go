/*
main.go - Application entry point

PURPOSE:
  Starts the benefit assessment engine, or runs one assessment from the
  command line. Handles configuration, dependency injection, and graceful
  shutdown.

COMMANDS:
  serve          HTTP API (default)
  assess [file]  Read an assessment request (JSON, file or stdin) and print
                 the result
  seed-g-table   Copy the built-in G table into an empty database

STARTUP SEQUENCE (serve):
  1. Load config (YAML, env expanded, .env autoloaded)
  2. Initialize SQLite store and load the G table
  3. Create API handler, optional image extractor
  4. Run HTTP server, G-table refresher and signal handler in an errgroup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (10s timeout)
  3. Stop the refresher and close the database

ENVIRONMENT:
  APP_CONFIG_FILE  Config path (same as --config)
  Any ${VAR} in the config file is expanded.

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration sections
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/warp/benefit-engine/api"
	"github.com/warp/benefit-engine/assessment"
	"github.com/warp/benefit-engine/config"
	"github.com/warp/benefit-engine/extraction"
	"github.com/warp/benefit-engine/factory"
	"github.com/warp/benefit-engine/karens"
	"github.com/warp/benefit-engine/store/sqlite"
)

func main() {
	cmd := &cli.Command{
		Name:   "benefit-engine",
		Usage:  "Disability benefit case assessment: foreldelse, uføregrad and karens",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:      "assess",
				Usage:     "Assess one request and print the result as JSON",
				ArgsUsage: "[request.json]",
				Action:    assess,
			},
			{
				Name:   "seed-g-table",
				Usage:  "Copy the built-in G table into an empty database",
				Action: seedGTable,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Error("application error")
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := config.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SERVE
// =============================================================================

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.App.LogLevel, os.Stdout)

	logger.WithFields(logrus.Fields{
		"http_address": cfg.App.HTTP.Address(),
		"sqlite_path":  cfg.SQLite.Path,
		"log_level":    cfg.App.LogLevel,
		"extraction":   cfg.Extraction.Enabled(),
	}).Info("configuration loaded")

	store, err := sqlite.New(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	handler.MaxUploadBytes = cfg.App.HTTP.MaxUploadBytes()
	if err := handler.LoadTable(ctx); err != nil {
		return fmt.Errorf("load G table: %w", err)
	}
	if cfg.Extraction.Enabled() {
		handler.Extractor = extraction.NewClaudeExtractor(cfg.Extraction)
	}

	refresher := api.NewTableRefresher(handler)
	refresher.Interval = cfg.SQLite.RefreshInterval()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           api.NewRouter(handler, cfg.App.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return refresher.Run(gCtx)
	})

	g.Go(func() error {
		logger.WithField("address", httpServer.Addr).Info("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.WithField("signal", sig.String()).Info("received shutdown signal")
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			config.LogError(logger, "main", "serve", err, nil)
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// ASSESS
// =============================================================================

func assess(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if path := cmd.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	input, err := factory.NewAssessmentFactory().ParseAssessment(data)
	if err != nil {
		return err
	}

	table, err := tableFromStore(ctx, cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(assessment.Compute(input, table))
}

// tableFromStore uses the database when it exists and the built-in table
// otherwise. assess never creates a database.
func tableFromStore(ctx context.Context, cfg *config.Config) (*karens.GTable, error) {
	if _, err := os.Stat(cfg.SQLite.Path); errors.Is(err, os.ErrNotExist) {
		return karens.DefaultTable(), nil
	}
	store, err := sqlite.New(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	logger := config.NewLogger(cfg.App.LogLevel, os.Stderr)
	h := api.NewHandler(store, logger)
	if err := h.LoadTable(ctx); err != nil {
		return nil, err
	}
	table, source := h.Table()
	logger.WithField("source", source).Debug("G table loaded")
	return table, nil
}

// =============================================================================
// SEED
// =============================================================================

func seedGTable(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.App.LogLevel, os.Stdout)

	store, err := sqlite.New(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	seeded, err := store.SeedIndex(ctx, karens.DefaultEntries())
	if err != nil {
		return fmt.Errorf("seed G table: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"seeded":  seeded,
		"entries": len(karens.DefaultEntries()),
	}).Info("G table seed finished")
	return nil
}
