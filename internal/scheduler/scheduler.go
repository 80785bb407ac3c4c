// Package scheduler runs periodic retraining jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/match-predictor/internal/service"
)

// retrainTimeout bounds one full retraining pass across all leagues.
const retrainTimeout = time.Hour

// Scheduler manages scheduled model retraining jobs
type Scheduler struct {
	cron       *cron.Cron
	predictor  *service.PredictionService
	logger     *logrus.Logger
	mu         sync.RWMutex
	isRunning  bool
	jobRunning bool
	jobIDs     []cron.EntryID
}

// NewScheduler creates a new scheduler
func NewScheduler(predictor *service.PredictionService, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		predictor: predictor,
		logger:    logger,
		jobIDs:    make([]cron.EntryID, 0),
	}
}

// ScheduleRetraining schedules a recurring retrain-and-publish pass over the
// given leagues. Overlapping runs are skipped, not queued.
func (s *Scheduler) ScheduleRetraining(cronExpression string, leagues []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if len(leagues) == 0 {
		return fmt.Errorf("no leagues to retrain")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() { s.retrain(leagues) })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":    cronExpression,
		"leagues": leagues,
	}).Info("Scheduled retraining job")

	return nil
}

func (s *Scheduler) retrain(leagues []string) {
	s.mu.Lock()
	if s.jobRunning {
		s.mu.Unlock()
		s.logger.Warn("Previous retraining pass still running, skipping this tick")
		return
	}
	s.jobRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.jobRunning = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), retrainTimeout)
	defer cancel()

	asOf := time.Now().UTC()
	results, errs := s.predictor.TrainAll(ctx, leagues, asOf)

	for league, result := range results {
		if _, err := s.predictor.Publish(ctx, result.Params); err != nil {
			s.logger.WithField("league", league).WithError(err).Error("Failed to publish retrained model")
		}
	}
	for league, err := range errs {
		s.logger.WithField("league", league).WithError(err).Error("Retraining failed")
	}

	s.logger.WithFields(logrus.Fields{
		"published": len(results),
		"failed":    len(errs),
	}).Info("Retraining pass completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Infof("Scheduler started with %d jobs", len(s.jobIDs))

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
