package scheduler

import (
	"context"
	"time"

	"community_distribution_bot/internal/app" // For DistributionService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	initialReconcileDelay = 5 * time.Second
	reconcileTimeout      = 1 * time.Minute
)

// CycleScheduler drives the periodic reconciliation tick. The tick never
// surfaces errors to users; a failed tick is logged and the next interval
// runs regardless.
type CycleScheduler struct {
	cronEngine  *cron.Cron
	distService app.DistributionService // Using the interface
	logger      *logrus.Entry
	cronSpec    string
	stopInitial chan struct{}
}

func NewCycleScheduler(
	distService app.DistributionService,
	logger *logrus.Entry,
	cronSpec string, // e.g., "*/5 * * * *" (every 5 minutes)
) *CycleScheduler {
	return &CycleScheduler{
		cronEngine:  cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		distService: distService,
		logger:      logger,
		cronSpec:    cronSpec,
		stopInitial: make(chan struct{}),
	}
}

func (s *CycleScheduler) Start() {
	s.logger.Info("Starting cycle reconciliation scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for cycle reconciliation.")
		s.runReconcile()
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add cycle reconciliation cron job")
	}

	// First reconcile shortly after startup so a cycle that expired while
	// the process was down is rolled over without waiting a full interval.
	go func() {
		select {
		case <-time.After(initialReconcileDelay):
			s.logger.Info("Running initial reconciliation after startup.")
			s.runReconcile()
		case <-s.stopInitial:
		}
	}()

	s.cronEngine.Start()
	s.logger.Info("Cycle reconciliation scheduler started.")
}

func (s *CycleScheduler) runReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	if err := s.distService.Reconcile(ctx); err != nil {
		s.logger.WithError(err).Error("Error during cycle reconciliation")
	}
}

func (s *CycleScheduler) Stop() {
	s.logger.Info("Stopping cycle reconciliation scheduler...")
	close(s.stopInitial)
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Cycle reconciliation scheduler gracefully stopped.")
}
