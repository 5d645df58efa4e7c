package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a periodic unit of work bounded by the scheduler's timeout.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron expressions.
type Scheduler struct {
	engine  *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// New constructs a scheduler using the server's local time.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		engine:  cron.New(cron.WithLocation(time.Local)),
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a task under the given spec (standard 5-field or descriptors such as "@hourly").
func (s *Scheduler) Register(name, spec string, task Task) error {
	_, err := s.engine.AddFunc(spec, func() {
		s.run(name, task)
	})
	if err != nil {
		return fmt.Errorf("register %s cron job: %w", name, err)
	}
	s.logger.Info("cron job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start begins dispatching in the background.
func (s *Scheduler) Start() {
	s.engine.Start()
}

// Stop halts dispatching and waits for running tasks to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.engine.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("cron shutdown timed out")
	}
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Warn("cron job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("cron job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}
