package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"coinvest-platform/pkg/config"
	"coinvest-platform/pkg/db"
	"coinvest-platform/pkg/gen"
	"coinvest-platform/pkg/logger"
	"coinvest-platform/pkg/redis"
	"coinvest-platform/pkg/sequence"
	"coinvest-platform/pkg/task"
	"coinvest-platform/pkg/taskname"
	"coinvest-platform/services/investment"
	"coinvest-platform/services/plan"
)

const sweepInterval = time.Hour

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		plan.Module,
		investment.Module,
		investment.TaskModule,
		task.Server,
		fx.Invoke(registerHandlers, registerSweep),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func registerHandlers(mux *asynq.ServeMux, t *investment.Task) {
	mux.HandleFunc(taskname.InvestmentMature, t.HandleMature)
	mux.HandleFunc(taskname.InvestmentMaturityRun, t.HandleMaturityRun)
}

// registerSweep enqueues the periodic maturity sweep. The per-investment
// tasks scheduled at activation do most of the work; the sweep is the safety
// net for tasks that were dropped or never enqueued.
func registerSweep(lc fx.Lifecycle, enqueuer task.Enqueuer) {
	stop := make(chan struct{})

	enqueue := func() {
		if _, err := enqueuer.Enqueue(
			asynq.NewTask(taskname.InvestmentMaturityRun, nil),
			asynq.Queue("low"),
		); err != nil {
			zap.L().Error("failed to enqueue maturity sweep", zap.Error(err))
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				enqueue()

				ticker := time.NewTicker(sweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						enqueue()
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
}
