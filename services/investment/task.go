package investment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinvest-platform/pkg/config"
	"coinvest-platform/pkg/errutil"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var TaskModule = fx.Module("task.investment",
	fx.Provide(NewTask),
)

type Task struct {
	svc         *Service
	concurrency int
}

type TaskParams struct {
	fx.In

	Service *Service
	Config  *config.Config
}

func NewTask(p TaskParams) *Task {
	return &Task{
		svc:         p.Service,
		concurrency: p.Config.Investment.Sweep.Concurrency,
	}
}

// HandleMaturityRun sweeps matured active investments and completes them.
// Individual failures are logged, not fatal: the next run retries them.
func (t *Task) HandleMaturityRun(ctx context.Context, asynqTask *asynq.Task) error {
	now := time.Now().UTC()

	matured, err := t.svc.FindMatured(ctx, now)
	if err != nil {
		zap.L().Error("failed to list matured investments", zap.Error(err))
		return err
	}

	if len(matured) == 0 {
		return nil
	}

	zap.L().Info("maturity sweep started",
		zap.String("task_type", asynqTask.Type()),
		zap.Int("count", len(matured)),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, inv := range matured {
		g.Go(func() error {
			if _, err := t.svc.Complete(ctx, inv.ID); err != nil {
				if isAlreadySettled(err) {
					return nil
				}
				zap.L().Error("failed to complete matured investment",
					zap.String("investment_id", inv.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// HandleMature completes one investment, scheduled at activation to fire at
// the end date.
func (t *Task) HandleMature(ctx context.Context, asynqTask *asynq.Task) error {
	var payload MaturePayload
	if err := json.Unmarshal(asynqTask.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", asynqTask.Type()),
		zap.String("investment_id", payload.InvestmentID),
	)

	if _, err := t.svc.Complete(ctx, payload.InvestmentID); err != nil {
		if isAlreadySettled(err) {
			zapLog.Info("investment already settled, nothing to do")
			return nil
		}
		zapLog.Error("failed to complete investment", zap.Error(err))
		return err
	}

	zapLog.Info("investment completed at maturity")
	return nil
}

// isAlreadySettled matches the transition guards: the investment was
// cancelled, rejected, completed by the sweep, or deleted. Retrying will
// never succeed.
func isAlreadySettled(err error) bool {
	var be errutil.BaseError
	if !errors.As(err, &be) {
		return false
	}
	return be.Status() == errutil.StatusConflict || be.Status() == errutil.StatusNotFound
}
