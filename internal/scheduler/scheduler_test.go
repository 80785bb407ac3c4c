package scheduler

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewScheduler(nil, log)
}

func TestStartWithoutJobsFails(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.Start())
}

func TestScheduleRetrainingValidation(t *testing.T) {
	s := newTestScheduler()

	assert.Error(t, s.ScheduleRetraining("0 4 * * *", nil), "empty league list must be rejected")
	assert.Error(t, s.ScheduleRetraining("not a cron", []string{"epl"}))
	assert.NoError(t, s.ScheduleRetraining("0 4 * * *", []string{"epl"}))
}

func TestStartStopLifecycle(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.ScheduleRetraining("0 4 * * *", []string{"epl"}))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(), "double start must fail")
	assert.False(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(), "stopping a stopped scheduler is a no-op")
}

func TestCannotScheduleWhileRunning(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.ScheduleRetraining("0 4 * * *", []string{"epl"}))
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.ScheduleRetraining("0 5 * * *", []string{"bundesliga"}))
}
