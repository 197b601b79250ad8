package investment

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/task"
	"coinvest-platform/services/plan"
	"coinvest-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T, opts ...func(*ServiceParams)) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Investment{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	p := ServiceParams{DB: db, Node: node, Catalog: plan.NewCatalog(plan.DefaultPlans())}
	for _, opt := range opts {
		opt(&p)
	}

	return NewService(p), db
}

func requireStatusErr(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	be, ok := err.(errutil.BaseError)
	require.True(t, ok, "expected BaseError, got %T: %v", err, err)
	require.Equal(t, status, be.Status())
}

func TestCreatePending(t *testing.T) {
	svc, _ := newTestService(t)

	inv, err := svc.Create(context.Background(), CreateParams{
		OwnerID: "owner-1",
		PlanID:  "professional",
		Amount:  5000,
	})
	require.NoError(t, err)

	require.Equal(t, StatusPending, inv.Status)
	require.Equal(t, "Professional", inv.PlanName)
	require.Equal(t, 8.0, inv.ReturnRate)
	require.Equal(t, 60, inv.DurationDays)
	require.NotEmpty(t, inv.Code)
	require.Nil(t, inv.StartDate)
	require.Nil(t, inv.EndDate)
}

func TestCreateUnknownPlan(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateParams{
		OwnerID: "owner-1",
		PlanID:  "platinum",
		Amount:  5000,
	})
	requireStatusErr(t, err, errutil.StatusBadRequest)
}

func TestCreateAmountRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// bounds are inclusive
	for _, amount := range []float64{100, 1000} {
		_, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: amount})
		require.NoError(t, err, "amount %v should be accepted", amount)
	}

	for _, amount := range []float64{99.99, 1000.01, 0, -50} {
		_, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: amount})
		requireStatusErr(t, err, errutil.StatusBadRequest)
	}
}

func TestActivateSetsWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	activated, err := svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	require.Equal(t, StatusActive, activated.Status)
	require.NotNil(t, activated.StartDate)
	require.NotNil(t, activated.EndDate)
	require.Equal(t,
		activated.StartDate.Add(time.Duration(activated.DurationDays)*24*time.Hour),
		*activated.EndDate,
	)
}

func TestActivateNotPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, inv.ID)
	requireStatusErr(t, err, errutil.StatusConflict)
}

func TestActivateNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Activate(context.Background(), "missing")
	requireStatusErr(t, err, errutil.StatusNotFound)
}

func TestActivateSchedulesMaturityTask(t *testing.T) {
	enqueuer := &enqueuerMock{}
	svc, _ := newTestService(t, func(p *ServiceParams) {
		p.Enqueuer = enqueuer
	})
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	require.Len(t, enqueuer.tasks, 1)
	require.Equal(t, "investment:mature", enqueuer.tasks[0].Type())
}

func TestCancelFromPendingAndActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pending, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	active, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, active.ID)
	require.NoError(t, err)

	cancelled, err = svc.Cancel(ctx, active.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancelIdempotencyGuard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)

	// a second cancel is a state conflict, not a silent success
	_, err = svc.Cancel(ctx, inv.ID)
	requireStatusErr(t, err, errutil.StatusConflict)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, inv.ID, "   ")
	requireStatusErr(t, err, errutil.StatusBadRequest)

	rejected, err := svc.Reject(ctx, inv.ID, "failed verification")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "failed verification", rejected.RejectionReason)
}

func TestRejectOnlyPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, inv.ID, "too late")
	requireStatusErr(t, err, errutil.StatusConflict)
}

func TestCompleteBeforeMaturity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, inv.ID)
	requireStatusErr(t, err, errutil.StatusConflict)
}

func TestCompleteAfterMaturity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", PlanID: "starter", Amount: 500})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, inv.ID)
	require.NoError(t, err)

	backdate(t, db, inv.ID, time.Now().UTC().Add(-time.Hour))

	completed, err := svc.Complete(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
}

// backdate moves an investment's end date into the past so maturity paths can
// run without a clock.
func backdate(t *testing.T, db *gorm.DB, id string, endDate time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&Investment{}).Where("id = ?", id).
		Update("end_date", endDate).Error)
}

func TestAccruedReturnZeroAtActivation(t *testing.T) {
	now := time.Now().UTC()
	inv := &Investment{
		Status:       StatusActive,
		Amount:       10000,
		ReturnRate:   8,
		DurationDays: 60,
		StartDate:    &now,
	}

	require.Equal(t, 0.0, inv.AccruedReturnAt(now))
}

func TestAccruedReturnFullPeriod(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	inv := &Investment{
		Status:       StatusActive,
		Amount:       10000,
		ReturnRate:   8,
		DurationDays: 60,
		StartDate:    &start,
	}

	require.Equal(t, 800.0, inv.AccruedReturnAt(time.Now().UTC()))
}

func TestAccruedReturnCappedAtMaturity(t *testing.T) {
	start := time.Now().UTC().Add(-400 * 24 * time.Hour)
	inv := &Investment{
		Status:       StatusActive,
		Amount:       10000,
		ReturnRate:   8,
		DurationDays: 60,
		StartDate:    &start,
	}

	// 60 days = two full periods, nothing past the end date
	require.Equal(t, 1600.0, inv.AccruedReturnAt(time.Now().UTC()))
}

func TestAccruedReturnFloorsToCent(t *testing.T) {
	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	inv := &Investment{
		Status:       StatusActive,
		Amount:       777,
		ReturnRate:   5,
		DurationDays: 30,
		StartDate:    &start,
	}

	// 777 * 5% * 7/30 = 9.065 → floored, never rounded up
	require.Equal(t, 9.06, inv.AccruedReturnAt(time.Now().UTC()))
}

func TestAccruedReturnNonActive(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)

	for _, status := range []string{StatusPending, StatusCancelled, StatusRejected, StatusCompleted} {
		inv := &Investment{
			Status:       status,
			Amount:       10000,
			ReturnRate:   8,
			DurationDays: 60,
			StartDate:    &start,
		}
		require.Equal(t, 0.0, inv.AccruedReturnAt(time.Now().UTC()), "status %s must not accrue", status)
	}
}

type enqueuerMock struct {
	tasks []*asynq.Task
}

var _ task.Enqueuer = (*enqueuerMock)(nil)

func (m *enqueuerMock) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, t)
	return &asynq.TaskInfo{}, nil
}
