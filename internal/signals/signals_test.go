package signals

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/match-predictor/internal/metrics"
	"github.com/yourusername/match-predictor/internal/models"
	"github.com/yourusername/match-predictor/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testFixture() *models.Fixture {
	return &models.Fixture{
		HomeTeam: "alpha",
		AwayTeam: "beta",
		League:   "epl",
		Kickoff:  time.Date(2025, 9, 13, 15, 0, 0, 0, time.UTC),
	}
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Fetch(context.Context, *models.Fixture) ([]Reading, error) {
	return nil, errors.New("feed unreachable")
}

func TestChainFirstPresentWins(t *testing.T) {
	first := NewStaticProvider("first",
		Present(models.SignalEloGap, 120, 1),
		Absent(models.SignalWeatherSeverity),
	)
	second := NewStaticProvider("second",
		Present(models.SignalEloGap, 999, 1),
		Present(models.SignalWeatherSeverity, 0.8, 1),
	)

	chain := NewChain(quietLogger(), first, second)
	collected := chain.Collect(context.Background(), testFixture())

	require.Len(t, collected, 2)
	byKind := make(map[models.SignalKind]models.StructuralSignal)
	for _, sig := range collected {
		byKind[sig.Kind] = sig
	}
	assert.Equal(t, 120.0, byKind[models.SignalEloGap].Value, "earlier provider must win")
	assert.Equal(t, 0.8, byKind[models.SignalWeatherSeverity].Value, "absent readings must not shadow later providers")
}

func TestChainProviderErrorContinues(t *testing.T) {
	chain := NewChain(quietLogger(),
		failingProvider{},
		NewStaticProvider("backup", Present(models.SignalRestDiff, 3, 1)),
	)

	collected := chain.Collect(context.Background(), testFixture())
	require.Len(t, collected, 1)
	assert.Equal(t, models.SignalRestDiff, collected[0].Kind)
}

func TestChainNoProvidersYieldsNothing(t *testing.T) {
	chain := NewChain(quietLogger())
	assert.Empty(t, chain.Collect(context.Background(), testFixture()))
}

func TestHistoryProviderDrawRates(t *testing.T) {
	repo := repository.NewMemoryMatchRepository()
	base := time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC)
	matches := []*models.MatchRecord{
		{HomeTeam: "alpha", AwayTeam: "beta", League: "epl", Date: base, HomeGoals: 1, AwayGoals: 1},
		{HomeTeam: "beta", AwayTeam: "alpha", League: "epl", Date: base.AddDate(0, 1, 0), HomeGoals: 2, AwayGoals: 0},
		{HomeTeam: "gamma", AwayTeam: "delta", League: "epl", Date: base.AddDate(0, 2, 0), HomeGoals: 0, AwayGoals: 0},
		{HomeTeam: "gamma", AwayTeam: "delta", League: "epl", Date: base.AddDate(0, 3, 0), HomeGoals: 2, AwayGoals: 1},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), matches))

	provider := NewHistoryProvider(repo)
	readings, err := provider.Fetch(context.Background(), testFixture())
	require.NoError(t, err)
	require.Len(t, readings, 2)

	byKind := make(map[models.SignalKind]Reading)
	for _, r := range readings {
		byKind[r.Signal.Kind] = r
	}

	league := byKind[models.SignalLeagueDrawRate]
	require.True(t, league.Present)
	assert.InDelta(t, 0.5, league.Signal.Value, 1e-12)
	assert.Equal(t, 4.0, league.Signal.Confidence)

	h2h := byKind[models.SignalH2HDrawRate]
	require.True(t, h2h.Present)
	assert.InDelta(t, 0.5, h2h.Signal.Value, 1e-12)
	assert.Equal(t, 2.0, h2h.Signal.Confidence)
}

func TestHistoryProviderAbsentWhenNoHistory(t *testing.T) {
	provider := NewHistoryProvider(repository.NewMemoryMatchRepository())

	readings, err := provider.Fetch(context.Background(), testFixture())
	require.NoError(t, err)
	for _, reading := range readings {
		assert.False(t, reading.Present, "no history must yield absent readings, not zeros")
	}
}

type countingProvider struct {
	calls int
}

func (p *countingProvider) Name() string { return "counting" }
func (p *countingProvider) Fetch(context.Context, *models.Fixture) ([]Reading, error) {
	p.calls++
	return []Reading{Present(models.SignalEloGap, 100, 1)}, nil
}

func TestCachingProviderHitsAndMisses(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachingProvider(inner, time.Minute)
	fixture := testFixture()

	first, err := cached.Fetch(context.Background(), fixture)
	require.NoError(t, err)
	second, err := cached.Fetch(context.Background(), fixture)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "second fetch must hit the cache")
	assert.Equal(t, first, second)

	hits, misses, ratio := cached.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-12)
}

func TestCachingProviderDistinctFixtures(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachingProvider(inner, time.Minute)

	_, err := cached.Fetch(context.Background(), testFixture())
	require.NoError(t, err)

	other := testFixture()
	other.AwayTeam = "gamma"
	_, err = cached.Fetch(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.ItemCount())
}

func TestCachingProviderDoesNotCacheErrors(t *testing.T) {
	cached := NewCachingProvider(failingProvider{}, time.Minute)

	_, err := cached.Fetch(context.Background(), testFixture())
	require.Error(t, err)
	assert.Equal(t, 0, cached.ItemCount())
}

func TestHTTPProviderFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "epl", r.URL.Query().Get("league"))
		assert.Equal(t, "alpha", r.URL.Query().Get("home"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signals":[
			{"kind":"elo_gap","value":150,"confidence":1},
			{"kind":"weather_severity","value":0.7},
			{"kind":"made_up_kind","value":42}
		]}`))
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(DefaultHTTPClientConfig(), quietLogger())
	provider := NewHTTPProvider(server.URL, "secret", client)

	readings, err := provider.Fetch(context.Background(), testFixture())
	require.NoError(t, err)
	require.Len(t, readings, 2, "unknown kinds must be dropped")

	assert.Equal(t, models.SignalEloGap, readings[0].Signal.Kind)
	assert.Equal(t, 150.0, readings[0].Signal.Value)
	assert.Equal(t, 0.0, readings[1].Signal.Confidence, "missing confidence defaults to zero")
}

func TestCachingProviderExportsHitRatioGauge(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachingProvider(inner, time.Minute)
	fixture := testFixture()

	_, err := cached.Fetch(context.Background(), fixture)
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), fixture)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, testutil.ToFloat64(metrics.SignalCacheHitRatio), 1e-12)
}

func TestHTTPClientConcurrentFailuresOpenBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	cfg.CircuitBreakerMax = 5
	client := NewRateLimitedHTTPClient(cfg, quietLogger())
	defer client.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				resp, err := client.Get(context.Background(), server.URL)
				assert.Error(t, err)
				if resp != nil {
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestHTTPProviderNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(DefaultHTTPClientConfig(), quietLogger())
	provider := NewHTTPProvider(server.URL, "", client)

	_, err := provider.Fetch(context.Background(), testFixture())
	require.Error(t, err)
}
