package schedule

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is periodic work run by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler runs jobs on standard five-field cron specs. A run that is
// still in progress when the next tick fires makes that tick a no-op.
type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{cron: cron.New(cron.WithParser(parser))}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	if _, err := c.cron.AddFunc(spec, c.wrap(job, spec)); err != nil {
		slog.Error("schedule job failed", "job", job.Name(), "spec", spec, "err", err)
		return err
	}
	slog.Info("job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	c.ctx = ctx
	c.cron.Start()
}

// Stop prevents new runs and waits for running ones to finish.
func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			slog.Info("job skipped: still running", "job", job.Name(), "spec", spec)
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		start := time.Now()
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			slog.Error("job finished", "job", job.Name(), "err", err, "duration", elapsed)
			return
		}
		slog.Info("job finished", "job", job.Name(), "duration", elapsed)
	}
}
