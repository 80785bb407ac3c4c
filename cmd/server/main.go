// Package main provides the entry point for the prediction server daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/match-predictor/internal/config"
	"github.com/yourusername/match-predictor/internal/database"
	"github.com/yourusername/match-predictor/internal/health"
	"github.com/yourusername/match-predictor/internal/logger"
	"github.com/yourusername/match-predictor/internal/metrics"
	"github.com/yourusername/match-predictor/internal/registry"
	"github.com/yourusername/match-predictor/internal/repository"
	"github.com/yourusername/match-predictor/internal/scheduler"
	"github.com/yourusername/match-predictor/internal/service"
	"github.com/yourusername/match-predictor/internal/signals"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("MATCH_PREDICTOR_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(context.Background(), cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
	}).Info("Match predictor server starting")

	// Initialize metrics before anything records into them
	metrics.InitRegistry()

	// Initialize database connection and verify the schema is migrated
	db, err := database.Initialize(context.Background(), cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	appLog.Info("Database connection established")

	// Initialize repositories and registry
	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}
	modelRegistry := registry.NewPostgresRegistry(db)

	// Build the signal chain: stored history first, remote feed as fallback
	chain, httpClient := buildSignalChain(cfg, repos, appLog)
	if httpClient != nil {
		defer func() {
			if err := httpClient.Close(); err != nil {
				appLog.WithError(err).Error("Failed to close signal feed client")
			}
		}()
	}

	predictor := service.NewPredictionService(cfg, repos.Match, modelRegistry, chain, appLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start the health and metrics server
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		Leagues:     cfg.Scheduler.Leagues,
		Logger:      appLog,
		DB:          db,
		Models:      modelRegistry,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	// Start the retraining scheduler when enabled
	var retrainScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		retrainScheduler, err = startScheduler(cfg, predictor, appLog)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
		appLog.WithFields(logrus.Fields{
			"cron":     cfg.Scheduler.RetrainCron,
			"leagues":  cfg.Scheduler.Leagues,
			"next_run": retrainScheduler.GetNextRun(),
		}).Info("Retraining scheduler started")
	} else {
		appLog.Info("Retraining scheduler disabled")
	}

	healthServer.SetReady(true)
	appLog.WithField("port", cfg.Metrics.Port).Info("Match predictor server running")

	// Wait for shutdown signal
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	if retrainScheduler != nil {
		if err := retrainScheduler.Stop(); err != nil {
			appLog.WithError(err).Error("Error during scheduler shutdown")
		}
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during health server shutdown")
	}

	// Give in-flight handlers time to finish
	time.Sleep(time.Second)

	appLog.Info("Match predictor server shut down successfully")
}

func buildSignalChain(cfg *config.Config, repos *repository.Repositories, appLog *logrus.Logger) (*signals.Chain, *signals.RateLimitedHTTPClient) {
	providers := []signals.Provider{signals.NewHistoryProvider(repos.Match)}

	var httpClient *signals.RateLimitedHTTPClient
	if cfg.Signals.Endpoint != "" {
		clientCfg := signals.DefaultHTTPClientConfig()
		clientCfg.Timeout = cfg.Signals.Timeout()
		clientCfg.MaxRetries = cfg.Signals.RetryAttempts
		clientCfg.RateLimit = cfg.Signals.RateLimitPerSecond
		httpClient = signals.NewRateLimitedHTTPClient(clientCfg, appLog)

		provider := signals.NewHTTPProvider(cfg.Signals.Endpoint, cfg.Signals.APIKey, httpClient)
		providers = append(providers, signals.NewCachingProvider(provider, cfg.Signals.CacheTTL()))

		appLog.WithField("endpoint", cfg.Signals.Endpoint).Info("Signal feed client initialized")
	}

	return signals.NewChain(appLog, providers...), httpClient
}

func startScheduler(cfg *config.Config, predictor *service.PredictionService, appLog *logrus.Logger) (*scheduler.Scheduler, error) {
	if len(cfg.Scheduler.Leagues) == 0 {
		return nil, fmt.Errorf("scheduler enabled but no leagues configured")
	}

	s := scheduler.NewScheduler(predictor, appLog)
	if err := s.ScheduleRetraining(cfg.Scheduler.RetrainCron, cfg.Scheduler.Leagues); err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}
