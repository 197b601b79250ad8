package investment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coinvest-platform/pkg/db/option"
	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/repository"
	"coinvest-platform/pkg/sequence"
	"coinvest-platform/pkg/task"
	"coinvest-platform/pkg/taskname"
	"coinvest-platform/services/plan"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	catalog *plan.Catalog
	seq     sequence.Generator
	asynq   task.Enqueuer

	investments repository.Repository[Investment]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Catalog *plan.Catalog

	Sequence sequence.Generator `optional:"true"`
	Enqueuer task.Enqueuer      `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		catalog: p.Catalog,
		seq:     p.Sequence,
		asynq:   p.Enqueuer,

		investments: repository.ProvideStore[Investment](p.DB),
	}
}

type CreateParams struct {
	OwnerID string  `json:"owner_id"`
	PlanID  string  `json:"plan_id"`
	Amount  float64 `json:"amount"`
}

// Create validates the plan and amount and records a pending investment. No
// balance moves until the investment is approved.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Investment, error) {
	if p.OwnerID == "" {
		return nil, errutil.BadRequest("owner_id is required", nil)
	}

	selected, ok := s.catalog.ByID(p.PlanID)
	if !ok {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown plan: %s", p.PlanID), nil)
	}

	if !selected.Allows(p.Amount) {
		return nil, errutil.BadRequest("amount out of range for plan", nil, errutil.WithDetails(errutil.Detail{
			Field:   "amount",
			Message: fmt.Sprintf("must be between %.2f and %.2f for plan %s", selected.MinAmount, selected.MaxAmount, selected.Name),
		}))
	}

	code, err := s.nextCode(ctx)
	if err != nil {
		zap.L().Error("failed to generate investment code", zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	inv := &Investment{
		ID:           s.node.Generate().String(),
		Code:         code,
		OwnerID:      p.OwnerID,
		PlanID:       selected.ID,
		PlanName:     selected.Name,
		Amount:       p.Amount,
		Status:       StatusPending,
		ReturnRate:   selected.ReturnRate,
		DurationDays: selected.DurationDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.investments.Create(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) nextCode(ctx context.Context) (string, error) {
	if s.seq != nil {
		return s.seq.NextInvestmentCode(ctx)
	}

	// no redis wired (tests, tooling): random code, still unique enough
	suffix, err := sequence.RandomAlphaNumeric(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s", suffix), nil
}

// Activate approves a pending investment: the accrual window opens now and
// closes after the plan duration. A maturity task is scheduled at the end
// date when a task client is wired.
func (s *Service) Activate(ctx context.Context, id string) (*Investment, error) {
	var activated *Investment

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)
		repo := s.investments.WithTrx(tx)

		inv, err := repo.FindOne(ctx, &Investment{ID: id})
		if err != nil {
			return err
		}
		if inv == nil {
			return errutil.NotFound("investment not found", nil)
		}
		if inv.Status != StatusPending {
			return errutil.Conflict(fmt.Sprintf("cannot activate %s investment", inv.Status), nil)
		}

		now := time.Now().UTC()
		end := now.Add(time.Duration(inv.DurationDays) * 24 * time.Hour)

		if err := repo.Update(ctx, inv.ID, map[string]any{
			"status":     StatusActive,
			"start_date": now,
			"end_date":   end,
			"updated_at": now,
		}); err != nil {
			return err
		}

		inv.Status = StatusActive
		inv.StartDate = &now
		inv.EndDate = &end
		inv.UpdatedAt = now
		activated = inv
		return nil
	}); err != nil {
		return nil, err
	}

	s.scheduleMaturity(activated)

	return activated, nil
}

type MaturePayload struct {
	InvestmentID string `json:"investment_id"`
}

func (s *Service) scheduleMaturity(inv *Investment) {
	if s.asynq == nil || inv == nil || inv.EndDate == nil {
		return
	}

	payload, err := json.Marshal(MaturePayload{InvestmentID: inv.ID})
	if err != nil {
		return
	}

	if _, err := s.asynq.Enqueue(
		asynq.NewTask(taskname.InvestmentMature, payload),
		asynq.ProcessAt(*inv.EndDate),
		asynq.Queue("low"),
	); err != nil {
		// the periodic sweep picks this investment up anyway
		zap.L().Warn("failed to schedule maturity task",
			zap.String("investment_id", inv.ID),
			zap.Error(err),
		)
	}
}

// Cancel is allowed while the money has not been paid out: pending or active.
func (s *Service) Cancel(ctx context.Context, id string) (*Investment, error) {
	return s.transition(ctx, id, StatusCancelled, func(inv *Investment) error {
		if inv.Status != StatusPending && inv.Status != StatusActive {
			return errutil.Conflict(fmt.Sprintf("cannot cancel %s investment", inv.Status), nil)
		}
		return nil
	}, nil)
}

// Reject declines a pending investment with a mandatory reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (*Investment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errutil.BadRequest("rejection reason is required", nil)
	}

	return s.transition(ctx, id, StatusRejected, func(inv *Investment) error {
		if inv.Status != StatusPending {
			return errutil.Conflict(fmt.Sprintf("cannot reject %s investment", inv.Status), nil)
		}
		return nil
	}, map[string]any{"rejection_reason": reason})
}

// Complete closes out a matured active investment. Callable by the sweep, the
// scheduled maturity task, or directly by an operator.
func (s *Service) Complete(ctx context.Context, id string) (*Investment, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, StatusCompleted, func(inv *Investment) error {
		if inv.Status != StatusActive {
			return errutil.Conflict(fmt.Sprintf("cannot complete %s investment", inv.Status), nil)
		}
		if inv.EndDate == nil || now.Before(*inv.EndDate) {
			return errutil.Conflict("investment has not matured yet", nil)
		}
		return nil
	}, nil)
}

func (s *Service) transition(ctx context.Context, id, target string, guard func(*Investment) error, extra map[string]any) (*Investment, error) {
	var result *Investment

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)
		repo := s.investments.WithTrx(tx)

		inv, err := repo.FindOne(ctx, &Investment{ID: id})
		if err != nil {
			return err
		}
		if inv == nil {
			return errutil.NotFound("investment not found", nil)
		}

		if err := guard(inv); err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		for k, v := range extra {
			updates[k] = v
		}

		if err := repo.Update(ctx, inv.ID, updates); err != nil {
			return err
		}

		inv.Status = target
		inv.UpdatedAt = now
		if reason, ok := extra["rejection_reason"].(string); ok {
			inv.RejectionReason = reason
		}
		result = inv
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Investment, error) {
	inv, err := s.investments.FindOne(ctx, &Investment{ID: id})
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errutil.NotFound("investment not found", nil)
	}
	return inv, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Investment, error) {
	return s.investments.Find(ctx, &Investment{OwnerID: ownerID}, option.WithSortBy(
		option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow: map[string]bool{
				"created_at": true,
			},
		},
	))
}

// AccruedReturn is the return earned so far, as of now.
func (s *Service) AccruedReturn(inv *Investment) float64 {
	return inv.AccruedReturnAt(time.Now().UTC())
}

// FindMatured lists active investments whose end date has passed.
func (s *Service) FindMatured(ctx context.Context, at time.Time) ([]*Investment, error) {
	return s.investments.Find(ctx, &Investment{Status: StatusActive},
		option.ApplyOperator(option.Condition{
			Field:    "end_date",
			Operator: option.LTE,
			Value:    at,
		}),
	)
}
