package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/match-predictor/internal/config"
	"github.com/yourusername/match-predictor/internal/database"
	"github.com/yourusername/match-predictor/internal/logger"
	"github.com/yourusername/match-predictor/internal/registry"
	"github.com/yourusername/match-predictor/internal/repository"
	"github.com/yourusername/match-predictor/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	leagues    []string
	asOfFlag   string
	dryRun     bool
	showTop    int

	appLog    *logrus.Logger
	cfg       *config.Config
	db        *database.DB
	predictor *service.PredictionService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringSliceVarP(&leagues, "league", "l", nil, "League(s) to train; defaults to every league with stored matches")
	rootCmd.Flags().StringVar(&asOfFlag, "as-of", "", "Reference date for recency weighting (YYYY-MM-DD, default now)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fit and report without publishing")
	rootCmd.Flags().IntVar(&showTop, "top", 10, "Number of teams to show in the ratings table")
}

var rootCmd = &cobra.Command{
	Use:   "trainer",
	Short: "Fit and publish match outcome model parameters",
	Long:  `Fits team strength ratings from stored match history, calibrates the model on a holdout window, and publishes the result to the model registry.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(); err != nil {
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer db.Close()
		return runTraining(cmd.Context())
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
	if err := loadSecretsIfEnabled(cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	db, err = database.NewDB(context.Background(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	reg := registry.NewPostgresRegistry(db)
	predictor = service.NewPredictionService(cfg, repos.Match, reg, nil, appLog)
	return nil
}

func loadSecretsIfEnabled(cfg *config.Config) error {
	if os.Getenv("AWS_SECRETS_ENABLED") != "true" {
		return nil
	}
	region := os.Getenv("AWS_REGION")
	secretName := os.Getenv("AWS_SECRET_NAME")
	if region == "" || secretName == "" {
		return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
	}
	return config.LoadSecretsFromAWS(context.Background(), cfg, region, secretName)
}

func runTraining(ctx context.Context) error {
	asOf := time.Now().UTC()
	if asOfFlag != "" {
		parsed, err := time.Parse("2006-01-02", asOfFlag)
		if err != nil {
			return fmt.Errorf("invalid as-of date %q: %w", asOfFlag, err)
		}
		asOf = parsed
	}

	targets, err := resolveLeagues(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no leagues to train; insert match history first or pass --league")
	}

	appLog.WithFields(logrus.Fields{
		"leagues": targets,
		"as_of":   asOf.Format("2006-01-02"),
		"dry_run": dryRun,
	}).Info("Training started")

	failures := 0
	for _, league := range targets {
		if err := trainOne(ctx, league, asOf); err != nil {
			appLog.WithError(err).WithField("league", league).Error("Training failed")
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d leagues failed", failures, len(targets))
	}
	return nil
}

func resolveLeagues(ctx context.Context) ([]string, error) {
	if len(leagues) > 0 {
		return leagues, nil
	}
	stored, err := predictor.Leagues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return stored, nil
}

func trainOne(ctx context.Context, league string, asOf time.Time) error {
	result, err := predictor.Train(ctx, league, asOf)
	if err != nil {
		return err
	}

	printRatings(league, result)

	if dryRun {
		fmt.Printf("  (dry run: version %s not published)\n\n", result.Params.Version)
		return nil
	}

	id, err := predictor.Publish(ctx, result.Params)
	if err != nil {
		return err
	}
	fmt.Printf("  published version %s (id %s)\n\n", result.Params.Version, id)
	return nil
}

func printRatings(league string, result *service.TrainResult) {
	diag := result.Diagnostics

	fmt.Printf("\n=== %s ===\n", league)
	fmt.Printf("  teams=%d matches=%d iterations=%d converged=%v\n",
		diag.Teams, diag.Matches, diag.Iterations, diag.Converged)
	fmt.Printf("  home_advantage=%.4f rho=%.4f temperature=%.4f\n",
		diag.HomeAdvantage, diag.Rho, diag.Temperature)

	type row struct {
		team            string
		attack, defense float64
	}
	rows := make([]row, 0, len(result.Params.TeamStrengths))
	for team, rating := range result.Params.TeamStrengths {
		rows = append(rows, row{team, rating.Attack, rating.Defense})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].attack > rows[j].attack })

	limit := showTop
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	fmt.Printf("  %-24s %8s %8s\n", "team", "attack", "defense")
	for _, r := range rows[:limit] {
		fmt.Printf("  %-24s %8.3f %8.3f\n", r.team, r.attack, r.defense)
	}
}
