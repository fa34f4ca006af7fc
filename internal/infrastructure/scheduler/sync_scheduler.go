package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stockitup/backend/internal/infrastructure/config"
)

// SyncRunner synchronises every connected marketplace
type SyncRunner interface {
	SyncAll(ctx context.Context) error
}

// RunStatus is the outcome of one scheduled run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
	RunStatusSkipped RunStatus = "SKIPPED"
)

// Run records one execution of the sync job
type Run struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Status    RunStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	Manual    bool          `json:"manual"`
}

const maxHistory = 50

// SyncScheduler runs marketplace synchronisation on a cron schedule.
// Runs never overlap: a tick that fires while a run is active is skipped.
type SyncScheduler struct {
	cfg    config.SyncConfig
	runner SyncRunner
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	active  sync.Mutex
	history []Run
}

// NewSyncScheduler validates the schedule and creates a stopped scheduler
func NewSyncScheduler(cfg config.SyncConfig, runner SyncRunner, logger *zap.Logger) (*SyncScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, cfg.Schedule, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	s := &SyncScheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}
	s.cron = cron.New(cron.WithLogger(cronLogger{s.logger}))
	return s, nil
}

// Start registers the job and starts the cron loop
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.run(false) }); err != nil {
		s.cancel()
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Sync scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Duration("timeout", s.cfg.Timeout),
	)
	return nil
}

// Stop stops the cron loop and waits for an active run, bounded by ctx
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow starts a run in the background outside the schedule
func (s *SyncScheduler) TriggerNow() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}
	if !s.active.TryLock() {
		return ErrSyncAlreadyInProgress
	}
	s.active.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(true)
	}()
	return nil
}

// NextRun returns when the schedule fires next, or zero when stopped
func (s *SyncScheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// History returns the most recent runs, newest first
func (s *SyncScheduler) History(limit int) []Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]Run, limit)
	copy(out, s.history[:limit])
	return out
}

func (s *SyncScheduler) run(manual bool) {
	run := Run{StartedAt: s.now(), Manual: manual}

	if !s.active.TryLock() {
		run.Status = RunStatusSkipped
		s.logger.Info("Sync run skipped, previous run still active")
		s.record(run)
		return
	}
	defer s.active.Unlock()

	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	err := s.runner.SyncAll(ctx)
	run.Duration = s.now().Sub(run.StartedAt)
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
		s.logger.Error("Sync run failed", zap.Bool("manual", manual), zap.Duration("duration", run.Duration), zap.Error(err))
	} else {
		run.Status = RunStatusSuccess
		s.logger.Info("Sync run completed", zap.Bool("manual", manual), zap.Duration("duration", run.Duration))
	}
	s.record(run)
}

func (s *SyncScheduler) record(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]Run{run}, s.history...)
	if len(s.history) > maxHistory {
		s.history = s.history[:maxHistory]
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
