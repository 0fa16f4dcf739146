package app

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	sweepTimeout  = 5 * time.Minute
	reportTimeout = time.Minute
	probeTimeout  = 5 * time.Second
	outboxTimeout = time.Minute
)

type scheduledJob struct {
	name     string
	schedule string
	timeout  time.Duration
	run      func(ctx context.Context) error
}

// cronLogger передаёт сообщения планировщика в логгер приложения.
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorf(err, "cron: %s %v", msg, keysAndValues)
}

// newScheduler регистрирует периодические задачи. Пустое расписание отключает задачу.
func (a *App) newScheduler(
	productUC *usecase.ProductUseCase,
	statsUC *usecase.StatsUseCase,
	healthUC *usecase.HealthUseCase,
) (*cron.Cron, error) {
	cl := cronLogger{logger: a.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []scheduledJob{
		{
			name:     "image sweep",
			schedule: a.cfg.Jobs.ImageSweepSchedule,
			timeout:  sweepTimeout,
			run: func(ctx context.Context) error {
				removed, err := productUC.SweepOrphanImages(ctx, a.cfg.Images.OrphanAge)
				if removed > 0 {
					a.logger.Infof("image sweep removed %d orphan file(s)", removed)
				}
				return err
			},
		},
		{
			name:     "low stock report",
			schedule: a.cfg.Jobs.LowStockReportSchedule,
			timeout:  reportTimeout,
			run:      statsUC.ReportLowStock,
		},
		{
			name:     "health probe",
			schedule: a.cfg.Jobs.HealthProbeSchedule,
			timeout:  probeTimeout,
			run: func(ctx context.Context) error {
				res := healthUC.Check(ctx)
				a.grpcSrv.SetServing(res.Healthy)
				if !res.Healthy {
					a.logger.Warnf("health probe failed: database=%s, image_storage=%s", res.Database, res.ImageStorage)
				}
				return nil
			},
		},
	}

	if a.outboxWorker != nil {
		jobs = append(jobs, scheduledJob{
			name:     "outbox maintenance",
			schedule: a.cfg.Jobs.OutboxSchedule,
			timeout:  outboxTimeout,
			run:      a.outboxMaintenance,
		})
	}

	for _, job := range jobs {
		if job.schedule == "" {
			a.logger.Infof("job %q disabled", job.name)
			continue
		}

		if _, err := c.AddFunc(job.schedule, a.wrapJob(job.name, job.timeout, job.run)); err != nil {
			return nil, e.Wrap(fmt.Sprintf("schedule %q for %s", job.schedule, job.name), err)
		}
		a.logger.Infof("job %q scheduled: %s", job.name, job.schedule)
	}

	return c, nil
}

// outboxMaintenance возвращает в очередь зависшие события и дочищает очередь.
func (a *App) outboxMaintenance(ctx context.Context) error {
	if _, err := a.outboxWorker.ReleaseStale(ctx, a.cfg.Kafka.OutboxStaleAfter); err != nil {
		return err
	}

	if _, err := a.outboxWorker.Drain(ctx); err != nil {
		return err
	}

	return nil
}

// wrapJob ограничивает задачу таймаутом и логирует её ошибку.
func (a *App) wrapJob(name string, timeout time.Duration, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(a.ctx, timeout)
		defer cancel()

		if err := run(ctx); err != nil {
			a.logger.Errorf(err, "job %q failed", name)
		}
	}
}
