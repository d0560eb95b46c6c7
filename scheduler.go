package snapkeeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/robfig/cron/v3"
)

// Scheduler starts rotations on cron schedules, one schedule per
// period. A run still in progress when its next tick fires is not
// started twice; the tick is skipped. A Scheduler can only be started
// once.
type Scheduler struct {
	cron    *cron.Cron
	log     log15.Logger
	mu      sync.Mutex
	ctx     context.Context
	entries map[Period]cron.EntryID
	started bool
	running bool

	stopOnce sync.Once
	stopped  context.Context // done once every running rotation returned
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(logger log15.Logger) *Scheduler {
	cl := cronLogger{log: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:     logger,
		ctx:     context.Background(),
		entries: make(map[Period]cron.EntryID),
	}
}

// Schedule runs rot on the standard five field cron expression spec,
// e.g. "0 3 * * *" for every day at 3 AM. Each period can only be
// scheduled once.
func (s *Scheduler) Schedule(spec string, rot *Rotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	period := rot.Period()
	if _, ok := s.entries[period]; ok {
		return fmt.Errorf("period %q is already scheduled", period)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for period %q: %w", spec, period, err)
	}
	id, err := s.cron.AddFunc(spec, func() { s.runRotation(rot) })
	if err != nil {
		return fmt.Errorf("scheduling period %q: %w", period, err)
	}
	s.entries[period] = id
	s.log.Info("scheduled rotation", "period", string(period), "schedule", spec, "keep", rot.Policy().KeepCount)
	return nil
}

// Start begins firing scheduled rotations. Runs receive ctx and the
// scheduler stops once ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.ctx = ctx
	s.cron.Start()
	s.started = true
	s.running = true
	s.log.Info("scheduler started", "rotations", len(s.entries))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the scheduler and waits for any running rotation to
// complete. Every call waits, including calls made after the scheduler
// was already stopped by its context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		s.stopped = s.cron.Stop()
	})
	<-s.stopped.Done()
	s.log.Debug("scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next time period is due, or nil if it is not
// scheduled or the scheduler has not been started.
func (s *Scheduler) NextRun(period Period) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[period]
	if !ok {
		return nil
	}
	next := s.cron.Entry(id).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *Scheduler) runRotation(rot *Rotation) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.log.Info("starting scheduled rotation", "period", string(rot.Period()))
	report, err := rot.Start(ctx)
	if err != nil {
		s.log.Error("scheduled rotation aborted", "period", string(rot.Period()), "error", err)
		return
	}
	s.log.Info("scheduled rotation finished", "period", string(rot.Period()),
		"created", report.Created, "deleted", report.Deleted, "errors", len(report.Errors))
}

// cronLogger adapts a log15.Logger to cron's logger interface.
type cronLogger struct {
	log log15.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
