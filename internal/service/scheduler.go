package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

const (
	// DefaultRescoreSchedule runs a sweep at the top of every hour.
	DefaultRescoreSchedule = "0 0 * * * *"
	rescoreTimeout         = 30 * time.Minute
)

// Scheduler handles periodic rescoring
type Scheduler struct {
	rescore *RescoreService
	cron    *cron.Cron
}

// NewScheduler creates a new rescore scheduler
func NewScheduler(rescore *RescoreService) *Scheduler {
	log := cronLogger{logger.L().Sugar()}
	return &Scheduler{
		rescore: rescore,
		cron:    cron.New(cron.WithSeconds(), cron.WithLogger(log), cron.WithChain(cron.Recover(log))),
	}
}

// Start begins the scheduled rescoring. The schedule takes a seconds field.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRescoreSchedule
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(s.rescore.RescoreAll) }); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Rescore scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Rescore scheduler stopped")
}

// RunNow starts an immediate rescore sweep in the background. It returns
// ErrRescoreRunning without starting anything when a sweep is in progress.
func (s *Scheduler) RunNow() error {
	if !s.rescore.claim() {
		return ErrRescoreRunning
	}

	logger.Info("Triggering immediate rescore sweep")
	go func() {
		defer s.rescore.release()
		s.run(s.rescore.sweepAll)
	}()
	return nil
}

func (s *Scheduler) run(sweep func(context.Context) (*RescoreStats, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), rescoreTimeout)
	defer cancel()

	logger.Info("Starting scheduled rescore")

	stats, err := sweep(ctx)
	if err != nil {
		logger.Error("Scheduled rescore failed", zap.Error(err))
		return
	}

	logger.Info("Scheduled rescore completed",
		zap.Int("leads", stats.Leads),
		zap.Int("deals", stats.Deals),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
}

// cronLogger routes cron's own messages through the process logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
