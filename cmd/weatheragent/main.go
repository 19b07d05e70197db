package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/weatheragent/internal/collector"
	"codeberg.org/mutker/weatheragent/internal/config"
	"codeberg.org/mutker/weatheragent/internal/fetcher"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/pid"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/record"
	"codeberg.org/mutker/weatheragent/internal/report"
	"codeberg.org/mutker/weatheragent/internal/storage"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
	"codeberg.org/mutker/weatheragent/internal/validator"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println("weatheragent", version)
		return
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	cfg.Log(logger.Default())

	if err := pid.Write(cfg.PIDFile); err != nil {
		logger.FatalWithCode(err).Msg("Failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	err = run(ctx, cfg)
	cancel()
	if err != nil {
		logger.ErrorWithCode(err).Msg("Collection failed")
	}

	cleanup(cfg)
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Default()

	fetch, err := fetcher.New(cfg.API.Config, &http.Client{Timeout: cfg.API.Timeout})
	if err != nil {
		return err
	}

	builder, err := record.New(record.Units(cfg.API.Units))
	if err != nil {
		return err
	}

	val, err := validator.New(cfg.Validation)
	if err != nil {
		return err
	}

	engine, err := quality.New(cfg.Quality)
	if err != nil {
		return err
	}

	store, err := storage.NewService(cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeWith("storage", store.Close)

	tel, err := telemetry.NewService(cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer closeWith("telemetry", tel.Close)

	assembler, err := report.New(cfg.Report, log)
	if err != nil {
		return err
	}

	c, err := collector.New(cfg.Collection, collector.Pipeline{
		Fetcher:   fetch,
		Builder:   builder,
		Validator: val,
		Quality:   engine,
		Rate:      cfg.Rate,
	},
		collector.WithStore(store),
		collector.WithTelemetry(tel),
		collector.WithLogger(log),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Int("cities", len(cfg.Cities)).
		Int("target_observations", cfg.Collection.TargetObservations).
		Int("max_cycles", cfg.Collection.MaxCycles).
		Msg("Starting collection")

	finalized, err := c.Run(ctx, cfg.Targets(), cfg.Credential())
	if err != nil {
		return err
	}

	// Reports are written even when the run was interrupted.
	artifacts, err := assembler.Assemble(context.Background(), finalized, report.Source{
		AgentVersion: version,
		DataSources:  []string{cfg.API.BaseURL},
		GeneratedAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("raw_data", artifacts.RawData).
		Str("metadata", artifacts.Metadata).
		Str("quality_report", artifacts.QualityJSON).
		Str("summary", artifacts.QualityText).
		Msg("Reports written")

	return nil
}

func closeWith(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.ErrorWithCode(err).Str("component", name).Msg("Failed to close")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(cfg *config.Config) {
	if err := pid.Remove(cfg.PIDFile); err != nil {
		logger.ErrorWithCode(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}
