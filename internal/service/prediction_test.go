package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-predictor/internal/config"
	"github.com/yourusername/match-predictor/internal/models"
	"github.com/yourusername/match-predictor/internal/registry"
	"github.com/yourusername/match-predictor/internal/repository"
	"github.com/yourusername/match-predictor/internal/signals"
)

var testAsOf = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Training: config.TrainingConfig{
			HalfLifeDays:    270,
			Epsilon:         1e-6,
			MaxIterations:   200,
			MinTeams:        4,
			MinMatches:      8,
			RhoMin:          -0.5,
			RhoMax:          0.5,
			HomeAdvantage:   0.3,
			MaxGoals:        10,
			HoldoutFraction: 0.2,
		},
		Blending: config.BlendingConfig{
			MaxDrawDelta:       0.06,
			ReferenceDrawRate:  0.26,
			H2HShrinkCount:     10,
			EloGapScale:        400,
			RestDiffScale:      5,
			InjuryScale:        5,
			InjurySideShiftMax: 0.04,
		},
	}
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// twoLegRoundRobin seeds a four team double round robin with a clear
// strength ordering: alpha > beta > gamma > delta.
func seedSeason(t *testing.T, repo repository.MatchRepository, league string) {
	t.Helper()
	scores := []struct {
		home, away           string
		homeGoals, awayGoals int
	}{
		{"alpha", "beta", 3, 1},
		{"alpha", "gamma", 4, 0},
		{"alpha", "delta", 5, 0},
		{"beta", "gamma", 2, 1},
		{"beta", "delta", 3, 0},
		{"gamma", "delta", 2, 1},
		{"beta", "alpha", 1, 2},
		{"gamma", "alpha", 0, 2},
		{"delta", "alpha", 1, 3},
		{"gamma", "beta", 1, 1},
		{"delta", "beta", 0, 2},
		{"delta", "gamma", 1, 1},
	}

	matches := make([]*models.MatchRecord, len(scores))
	for i, s := range scores {
		matches[i] = &models.MatchRecord{
			HomeTeam:  s.home,
			AwayTeam:  s.away,
			League:    league,
			Date:      testAsOf.AddDate(0, 0, -60+i*4),
			HomeGoals: s.homeGoals,
			AwayGoals: s.awayGoals,
		}
	}
	require.NoError(t, repo.InsertBatch(context.Background(), matches))
}

func newTestService(t *testing.T, chain *signals.Chain) (*PredictionService, *registry.MemoryRegistry) {
	t.Helper()
	repo := repository.NewMemoryMatchRepository()
	seedSeason(t, repo, "epl")
	reg := registry.NewMemoryRegistry()
	return NewPredictionService(testConfig(), repo, reg, chain, discardLogger()), reg
}

func TestTrainProducesPublishableParams(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	require.NotNil(t, result.Params)
	require.NotNil(t, result.Diagnostics)

	assert.True(t, result.Diagnostics.Converged)
	assert.Equal(t, 4, result.Diagnostics.Teams)
	assert.Greater(t, result.Params.Temperature, 0.0)
	assert.NotEmpty(t, result.Params.Version)
	assert.Equal(t, models.StateTraining, result.Params.State)

	alpha := result.Params.TeamStrengths["alpha"]
	delta := result.Params.TeamStrengths["delta"]
	assert.Greater(t, alpha.Attack, delta.Attack, "stronger team must carry the higher attack rating")

	_, err = svc.Publish(context.Background(), result.Params)
	require.NoError(t, err)
}

func TestTrainInsufficientDataScopedToLeague(t *testing.T) {
	repo := repository.NewMemoryMatchRepository()
	require.NoError(t, repo.Insert(context.Background(), &models.MatchRecord{
		HomeTeam: "one", AwayTeam: "two", League: "tiny", Date: testAsOf.AddDate(0, 0, -7),
	}))
	svc := NewPredictionService(testConfig(), repo, registry.NewMemoryRegistry(), nil, discardLogger())

	_, err := svc.Train(context.Background(), "tiny", testAsOf)
	require.Error(t, err)

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "tiny", insufficient.League)
}

func TestTrainAllCollectsPerLeagueFailures(t *testing.T) {
	repo := repository.NewMemoryMatchRepository()
	seedSeason(t, repo, "epl")
	require.NoError(t, repo.Insert(context.Background(), &models.MatchRecord{
		HomeTeam: "one", AwayTeam: "two", League: "tiny", Date: testAsOf.AddDate(0, 0, -7),
	}))
	svc := NewPredictionService(testConfig(), repo, registry.NewMemoryRegistry(), nil, discardLogger())

	results, errs := svc.TrainAll(context.Background(), []string{"epl", "tiny"}, testAsOf)

	require.Contains(t, results, "epl")
	require.Contains(t, errs, "tiny")
	var insufficient *models.InsufficientDataError
	assert.True(t, errors.As(errs["tiny"], &insufficient))
}

func TestEvaluateWithoutModelFailsLoudly(t *testing.T) {
	svc, _ := newTestService(t, nil)

	fixture := &models.Fixture{HomeTeam: "alpha", AwayTeam: "beta", League: "epl", Kickoff: testAsOf}
	_, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoActiveModel))
}

func TestEvaluateActiveModel(t *testing.T) {
	svc, _ := newTestService(t, nil)

	trained, err := svc.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), trained.Params)
	require.NoError(t, err)

	fixture := &models.Fixture{HomeTeam: "alpha", AwayTeam: "delta", League: "epl", Kickoff: testAsOf}
	prediction, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)

	assert.True(t, prediction.Probabilities.Valid())
	assert.Greater(t, prediction.Probabilities.HomeWin, prediction.Probabilities.AwayWin,
		"the strongest side at home must be favored over the weakest")
	assert.Greater(t, prediction.ExpectedHome, prediction.ExpectedAway)
	assert.InDelta(t, 1.0, prediction.Over25+prediction.Under25, 1e-9)
	assert.Equal(t, trained.Params.Version, prediction.ModelVersion)
}

func TestEvaluateDeterministic(t *testing.T) {
	svc, _ := newTestService(t, nil)

	trained, err := svc.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), trained.Params)
	require.NoError(t, err)

	fixture := &models.Fixture{HomeTeam: "beta", AwayTeam: "gamma", League: "epl", Kickoff: testAsOf}
	first, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Probabilities, second.Probabilities)
}

func TestEvaluatePinnedVersion(t *testing.T) {
	svc, _ := newTestService(t, nil)

	first, err := svc.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), first.Params)
	require.NoError(t, err)

	second, err := svc.Train(context.Background(), "epl", testAsOf.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), second.Params)
	require.NoError(t, err)

	fixture := &models.Fixture{HomeTeam: "alpha", AwayTeam: "beta", League: "epl", Kickoff: testAsOf}

	pinned, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{ModelVersion: first.Params.Version})
	require.NoError(t, err)
	assert.Equal(t, first.Params.Version, pinned.ModelVersion)

	active, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, second.Params.Version, active.ModelVersion)
}

func TestEvaluateUnknownVersion(t *testing.T) {
	svc, _ := newTestService(t, nil)

	fixture := &models.Fixture{HomeTeam: "alpha", AwayTeam: "beta", League: "epl", Kickoff: testAsOf}
	_, err := svc.Evaluate(context.Background(), fixture, EvaluateOptions{ModelVersion: "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestEvaluateBlendsSignals(t *testing.T) {
	chain := signals.NewChain(discardLogger(),
		signals.NewStaticProvider("test",
			signals.Present(models.SignalLeagueDrawRate, 0.36, 100),
		),
	)

	repo := repository.NewMemoryMatchRepository()
	seedSeason(t, repo, "epl")
	reg := registry.NewMemoryRegistry()

	plain := NewPredictionService(testConfig(), repo, reg, nil, discardLogger())
	blended := NewPredictionService(testConfig(), repo, reg, chain, discardLogger())

	trained, err := plain.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	_, err = plain.Publish(context.Background(), trained.Params)
	require.NoError(t, err)

	fixture := &models.Fixture{HomeTeam: "beta", AwayTeam: "gamma", League: "epl", Kickoff: testAsOf}

	withoutSignals, err := plain.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)
	withSignals, err := blended.Evaluate(context.Background(), fixture, EvaluateOptions{})
	require.NoError(t, err)

	assert.Greater(t, withSignals.Probabilities.Draw, withoutSignals.Probabilities.Draw,
		"a draw-heavy league signal must raise the draw probability")
	assert.Len(t, withSignals.SignalsUsed, 1)
	assert.True(t, withSignals.Probabilities.Valid())
}

type mockMatchRepo struct {
	mock.Mock
}

func (m *mockMatchRepo) Insert(ctx context.Context, match *models.MatchRecord) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *mockMatchRepo) InsertBatch(ctx context.Context, matches []*models.MatchRecord) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

func (m *mockMatchRepo) GetByLeague(ctx context.Context, league string, start, end time.Time) ([]*models.MatchRecord, error) {
	args := m.Called(ctx, league, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchRecord), args.Error(1)
}

func (m *mockMatchRepo) GetByTeams(ctx context.Context, home, away string, limit int) ([]*models.MatchRecord, error) {
	args := m.Called(ctx, home, away, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchRecord), args.Error(1)
}

func (m *mockMatchRepo) Leagues(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestTrainWrapsHistoryLoadFailure(t *testing.T) {
	repo := &mockMatchRepo{}
	repo.On("GetByLeague", mock.Anything, "epl", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	svc := NewPredictionService(testConfig(), repo, registry.NewMemoryRegistry(), nil, discardLogger())

	_, err := svc.Train(context.Background(), "epl", testAsOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load history")
	repo.AssertExpectations(t)
}

func TestPublishRejectsInvalidTemperature(t *testing.T) {
	svc, reg := newTestService(t, nil)

	trained, err := svc.Train(context.Background(), "epl", testAsOf)
	require.NoError(t, err)
	trained.Params.Temperature = 0

	_, err = svc.Publish(context.Background(), trained.Params)
	require.Error(t, err)

	var invalid *models.InvalidParameterError
	assert.True(t, errors.As(err, &invalid))

	_, err = reg.GetActive(context.Background(), "epl")
	assert.True(t, errors.Is(err, models.ErrNoActiveModel), "failed validation must block promotion")
}

func TestSplitHoldout(t *testing.T) {
	history := make([]models.MatchRecord, 10)
	trainSet, holdout := splitHoldout(history, 0.2)
	assert.Len(t, trainSet, 8)
	assert.Len(t, holdout, 2)

	trainSet, holdout = splitHoldout(history, 0)
	assert.Len(t, trainSet, 10)
	assert.Empty(t, holdout)

	single := make([]models.MatchRecord, 1)
	trainSet, holdout = splitHoldout(single, 0.5)
	assert.Len(t, trainSet, 1)
	assert.Empty(t, holdout)
}
