package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/match-predictor/internal/config"
	"github.com/yourusername/match-predictor/internal/database"
	"github.com/yourusername/match-predictor/internal/logger"
	"github.com/yourusername/match-predictor/internal/models"
	"github.com/yourusername/match-predictor/internal/registry"
	"github.com/yourusername/match-predictor/internal/repository"
	"github.com/yourusername/match-predictor/internal/service"
	"github.com/yourusername/match-predictor/internal/signals"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile   string
	league       string
	homeTeam     string
	awayTeam     string
	kickoffFlag  string
	modelVersion string
	margin       float64
	noSignals    bool

	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	httpClient *signals.RateLimitedHTTPClient
	predictor  *service.PredictionService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&league, "league", "l", "", "League identifier")
	rootCmd.Flags().StringVar(&homeTeam, "home", "", "Home team")
	rootCmd.Flags().StringVar(&awayTeam, "away", "", "Away team")
	rootCmd.Flags().StringVar(&kickoffFlag, "kickoff", "", "Kickoff time (RFC3339, default now)")
	rootCmd.Flags().StringVar(&modelVersion, "model-version", "", "Pin a specific model version instead of the active one")
	rootCmd.Flags().Float64Var(&margin, "margin", 0, "Bookmaker margin applied to quoted odds (e.g. 0.05)")
	rootCmd.Flags().BoolVar(&noSignals, "no-signals", false, "Skip structural signal gathering")

	_ = rootCmd.MarkFlagRequired("league")
	_ = rootCmd.MarkFlagRequired("home")
	_ = rootCmd.MarkFlagRequired("away")
}

var rootCmd = &cobra.Command{
	Use:   "predict",
	Short: "Evaluate match outcome probabilities for a fixture",
	Long:  `Evaluates the active (or a pinned) model for a fixture and prints calibrated outcome probabilities with fair decimal odds.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer teardown()
		return runPrediction(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(context.Background(), cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.SetLevel(logrus.WarnLevel)

	db, err = database.NewDB(context.Background(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	reg := registry.NewPostgresRegistry(db)

	var chain *signals.Chain
	if !noSignals {
		chain = buildSignalChain(repos.Match)
	}

	predictor = service.NewPredictionService(cfg, repos.Match, reg, chain, appLog)
	return nil
}

func buildSignalChain(matches repository.MatchRepository) *signals.Chain {
	providers := []signals.Provider{signals.NewHistoryProvider(matches)}

	if cfg.Signals.Endpoint != "" {
		clientCfg := signals.DefaultHTTPClientConfig()
		clientCfg.Timeout = cfg.Signals.Timeout()
		clientCfg.MaxRetries = cfg.Signals.RetryAttempts
		clientCfg.RateLimit = cfg.Signals.RateLimitPerSecond
		httpClient = signals.NewRateLimitedHTTPClient(clientCfg, appLog)

		provider := signals.NewHTTPProvider(cfg.Signals.Endpoint, cfg.Signals.APIKey, httpClient)
		providers = append(providers, signals.NewCachingProvider(provider, cfg.Signals.CacheTTL()))
	}

	return signals.NewChain(appLog, providers...)
}

func teardown() {
	if httpClient != nil {
		_ = httpClient.Close()
	}
	if db != nil {
		db.Close()
	}
}

func runPrediction(ctx context.Context) error {
	kickoff := time.Now().UTC()
	if kickoffFlag != "" {
		parsed, err := time.Parse(time.RFC3339, kickoffFlag)
		if err != nil {
			return fmt.Errorf("invalid kickoff %q: %w", kickoffFlag, err)
		}
		kickoff = parsed
	}

	fixture := &models.Fixture{
		League:   league,
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
		Kickoff:  kickoff,
	}

	prediction, err := predictor.Evaluate(ctx, fixture, service.EvaluateOptions{ModelVersion: modelVersion})
	if err != nil {
		return err
	}

	printPrediction(prediction)
	return nil
}

func printPrediction(p *service.Prediction) {
	fmt.Printf("\n%s vs %s (%s)\n", p.Fixture.HomeTeam, p.Fixture.AwayTeam, p.Fixture.League)
	fmt.Printf("model version: %s\n\n", p.ModelVersion)

	odds := service.FairOdds(p.Probabilities)
	if margin > 0 {
		odds = service.OddsWithMargin(p.Probabilities, margin)
	}

	fmt.Printf("  %-10s %8s %8s\n", "outcome", "prob", "odds")
	fmt.Printf("  %-10s %7.1f%% %8s\n", "home win", p.Probabilities.HomeWin*100, odds.HomeWin.StringFixed(2))
	fmt.Printf("  %-10s %7.1f%% %8s\n", "draw", p.Probabilities.Draw*100, odds.Draw.StringFixed(2))
	fmt.Printf("  %-10s %7.1f%% %8s\n", "away win", p.Probabilities.AwayWin*100, odds.AwayWin.StringFixed(2))

	fmt.Printf("\n  expected goals: %.2f - %.2f\n", p.ExpectedHome, p.ExpectedAway)
	fmt.Printf("  over 2.5: %.1f%%  under 2.5: %.1f%%  btts: %.1f%%\n",
		p.Over25*100, p.Under25*100, p.BothToScore*100)

	if margin > 0 {
		fmt.Printf("  overround: %s\n", odds.Overround().StringFixed(4))
	}

	if len(p.SignalsUsed) > 0 {
		fmt.Println("\n  signals:")
		for _, sig := range p.SignalsUsed {
			fmt.Printf("    %-20s %.3f (confidence %.1f)\n", sig.Kind, sig.Value, sig.Confidence)
		}
	}
	fmt.Println()
}
