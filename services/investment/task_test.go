package investment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"coinvest-platform/pkg/taskname"
)

func newTestTask(t *testing.T, svc *Service) *Task {
	t.Helper()
	return &Task{svc: svc, concurrency: 2}
}

func TestMaturityRunCompletesOnlyMatured(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	matured, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, matured.ID)
	require.NoError(t, err)
	backdate(t, db, matured.ID, time.Now().UTC().Add(-time.Minute))

	running, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, running.ID)
	require.NoError(t, err)

	task := newTestTask(t, svc)
	err = task.HandleMaturityRun(ctx, asynq.NewTask(taskname.InvestmentMaturityRun, nil))
	require.NoError(t, err)

	got, err := svc.Get(ctx, matured.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)

	got, err = svc.Get(ctx, running.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
}

func TestHandleMatureSettledIsNotRetried(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)

	payload, err := json.Marshal(MaturePayload{InvestmentID: inv.ID})
	require.NoError(t, err)

	task := newTestTask(t, svc)
	err = task.HandleMature(ctx, asynq.NewTask(taskname.InvestmentMature, payload))
	require.NoError(t, err)

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestHandleMatureInvalidPayload(t *testing.T) {
	svc, _ := newTestService(t)

	task := newTestTask(t, svc)
	err := task.HandleMature(context.Background(), asynq.NewTask(taskname.InvestmentMature, []byte("{")))
	require.Error(t, err)
}
