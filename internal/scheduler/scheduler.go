package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSpec           = "0 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	DefaultRunTimeout     = 15 * time.Minute
)

// Job is one scheduled unit of work.
type Job interface {
	Run(ctx context.Context) error
}

type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

type Scheduler struct {
	ctx        context.Context
	cron       *cron.Cron
	spec       string
	runTimeout time.Duration
	job        Job
	// running makes overlapping ticks skip instead of piling up.
	running sync.Mutex
	log     *slog.Logger
}

func New(ctx context.Context, spec string, runTimeout time.Duration, job Job, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	if spec == "" {
		spec = DefaultSpec
	}
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}

	return &Scheduler{
		ctx:        ctx,
		cron:       c,
		spec:       spec,
		runTimeout: runTimeout,
		job:        job,
		log:        log,
	}
}

// Start registers the job, runs it once right away and then on every tick.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("add cron func (spec = %s): %w", s.spec, err)
	}

	s.cron.Start()

	go s.tick()

	s.log.InfoContext(s.ctx, "Scheduler is started",
		"spec", s.spec,
		"runTimeout", s.runTimeout)

	return nil
}

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()

	s.running.Lock()
	defer s.running.Unlock()
}

func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		s.log.WarnContext(s.ctx, "Previous run is still in progress so tick is skipped")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	started := time.Now()

	if err := s.job.Run(ctx); err != nil {
		s.log.ErrorContext(ctx, "Failed to run scheduled job",
			"error", err,
			"duration", time.Since(started))
		return
	}

	s.log.InfoContext(ctx, "Scheduled job is done",
		"duration", time.Since(started))
}
