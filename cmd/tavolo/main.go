package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tavolo/tavolo/internal/agent"
	"github.com/tavolo/tavolo/internal/api"
	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/calls"
	"github.com/tavolo/tavolo/internal/config"
	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/llm"
	"github.com/tavolo/tavolo/internal/metrics"
	"github.com/tavolo/tavolo/internal/quality"
	"github.com/tavolo/tavolo/internal/sms"
	"github.com/tavolo/tavolo/internal/sounds"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting tavolo",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"agent_model", cfg.AgentModel,
		"sms_enabled", cfg.SMSEnabled(),
	)

	// Open database and run migrations.
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Extract embedded audio so Twilio can fetch it over HTTP.
	if err := sounds.ExtractToDataDir(cfg.DataDir); err != nil {
		slog.Error("failed to extract sounds", "error", err)
		os.Exit(1)
	}

	// Application context for background goroutines.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Load system configuration from database.
	sysConfig, err := database.NewSystemConfigRepository(context.Background(), db)
	if err != nil {
		slog.Error("failed to load system config", "error", err)
		os.Exit(1)
	}

	reservations := database.NewReservationRepository(db)
	tables := database.NewDiningTableRepository(db)
	callMetrics := database.NewCallMetricsRepository(db)
	callQuality := database.NewCallQualityRepository(db)
	turns := database.NewConversationTurnRepository(db)

	// SMS sender, disabled when Twilio credentials are absent.
	notifier := sms.NewDisabledSender(logger)
	if cfg.SMSEnabled() {
		notifier = sms.NewSender(
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.TwilioFromNumber,
			loadVenue(appCtx, sysConfig),
			logger,
		)
	}

	bookingSvc := booking.NewService(reservations, tables, notifier, cfg.OpenHour, cfg.CloseHour, logger)

	if cfg.OpenAIKey == "" {
		slog.Warn("no OpenAI key configured, agent will answer with fallback replies")
	}
	ag := agent.New(llm.NewClient(cfg.OpenAIKey, cfg.AgentModel, cfg.AgentTokens), bookingSvc, logger)

	// Quality analyzer with optional AI judge.
	var judge quality.TranscriptJudge
	if cfg.OpenAIKey != "" {
		judge = llm.NewJudge(cfg.OpenAIKey, cfg.JudgeModel)
	}
	analyzer := quality.NewAnalyzer(callMetrics, callQuality, turns, judge, logger)

	if cfg.QualityIntervalMin > 0 {
		quality.StartAnalysisTicker(appCtx, analyzer,
			time.Duration(cfg.QualityIntervalMin)*time.Minute, cfg.QualityBatchSize)
	}

	collector := metrics.NewCollector(ag, reservations, callMetrics, callQuality, time.Now())

	// HTTP server using the api package.
	handler := api.NewServer(db, cfg, api.Deps{
		Booking:   bookingSvc,
		Agent:     ag,
		Calls:     calls.NewStore(),
		Analyzer:  analyzer,
		SysConfig: sysConfig,
		Collector: collector,
	})
	defer handler.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("tavolo stopped")
}

// loadVenue reads the restaurant identity used in SMS messages from
// system config, keeping the defaults for unset keys.
func loadVenue(ctx context.Context, sysConfig database.SystemConfigRepository) sms.Venue {
	venue := sms.DefaultVenue
	if v, err := sysConfig.Get(ctx, database.ConfigRestaurantName); err == nil && v != "" {
		venue.Name = v
	}
	if v, err := sysConfig.Get(ctx, database.ConfigRestaurantAddress); err == nil && v != "" {
		venue.Address = v
	}
	if v, err := sysConfig.Get(ctx, database.ConfigRestaurantPhone); err == nil && v != "" {
		venue.Phone = v
	}
	return venue
}
