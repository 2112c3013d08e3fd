package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	workerPkg "post-alert/internal/infra/worker"
	"post-alert/internal/pkg/config"
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}

// skipIfRunning drops a trigger while the previous run of the same job is
// still in progress and reports it through onSkip.
func skipIfRunning(onSkip func()) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		var running atomic.Bool
		return cron.FuncJob(func() {
			if !running.CompareAndSwap(false, true) {
				onSkip()
				return
			}
			defer running.Store(false)
			j.Run()
		})
	}
}

// scheduledRun is the cron entry for job. A failed run is logged by job
// itself, so its error is dropped here.
func scheduledRun(ctx context.Context, job func(ctx context.Context) error, metrics *workerPkg.WorkerMetrics, schedule cron.Schedule, loc *time.Location) func() {
	return func() {
		_ = job(ctx)
		metrics.SetNextRun(schedule.Next(time.Now().In(loc)))
	}
}

// runScheduler runs job on cfg.CronSchedule until ctx is cancelled, then
// waits for an in-flight run to return.
func runScheduler(
	ctx context.Context,
	logger *slog.Logger,
	cfg *workerPkg.WorkerConfig,
	metrics *workerPkg.WorkerMetrics,
	healthServer *workerPkg.HealthServer,
	job func(ctx context.Context) error,
) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	schedule, err := config.ParseCronSchedule(cfg.CronSchedule)
	if err != nil {
		return err
	}

	clog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(config.CronParser()),
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(
			cron.Recover(clog),
			skipIfRunning(func() {
				metrics.RecordSkipped()
				logger.Warn("previous run still in progress, skipping trigger")
			}),
		),
	)

	_, err = c.AddFunc(cfg.CronSchedule, scheduledRun(ctx, job, metrics, schedule, loc))
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	c.Start()
	metrics.SetNextRun(schedule.Next(time.Now().In(loc)))
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutdown requested, waiting for running job")
	<-c.Stop().Done()
	metrics.SetNextRun(time.Time{})
	logger.Info("scheduler stopped")
	return nil
}
