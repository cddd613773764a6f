package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of periodic work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.SugaredLogger

	mu      sync.Mutex
	started bool
}

// New returns a stopped Scheduler. Jobs run in UTC.
func New(log *zap.SugaredLogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

// Add registers job under spec, e.g. "@every 1h" or "0 3 * * *".
// Overlapping runs of the same job are skipped.
func (s *Scheduler) Add(name, spec string, job Job) error {
	run := cron.FuncJob(func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.log.Errorw("scheduled job failed", "job", name, "error", err)
			return
		}
		s.log.Debugw("scheduled job done", "job", name, "took", time.Since(start))
	})
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(run)
	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Infow("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.log.Infow("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cancel()
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
	s.cancel()
	s.log.Info("scheduler stopped")
}
