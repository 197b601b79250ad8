package referral

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coinvest-platform/pkg/db/option"
	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/repository"
	"coinvest-platform/pkg/sequence"
	"coinvest-platform/services/account"
	"coinvest-platform/services/portfolio"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeLength          = 8
	maxCodeGenAttempts  = 5
	claimDescription    = "Referral rewards claim"
	claimReferenceScope = "referral"
)

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	portfolio *portfolio.Service

	codes    repository.Repository[Code]
	usages   repository.Repository[Usage]
	accounts repository.Repository[account.Account]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Portfolio *portfolio.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		portfolio: p.Portfolio,

		codes:    repository.ProvideStore[Code](p.DB),
		usages:   repository.ProvideStore[Usage](p.DB),
		accounts: repository.ProvideStore[account.Account](p.DB),
	}
}

// GenerateCode mints the owner's referral code. Idempotent: an owner who
// already has a code gets it back instead of a new one.
func (s *Service) GenerateCode(ctx context.Context, ownerID string) (*Code, error) {
	owner, err := s.accounts.FindOne(ctx, &account.Account{ID: ownerID})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, errutil.NotFound("account not found", nil)
	}

	existing, err := s.codes.FindOne(ctx, &Code{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var value string
	for attempt := 0; attempt < maxCodeGenAttempts; attempt++ {
		candidate, err := sequence.RandomAlphaNumeric(codeLength)
		if err != nil {
			return nil, err
		}

		taken, err := s.codes.FindOne(ctx, &Code{Code: candidate})
		if err != nil {
			return nil, err
		}
		if taken == nil {
			value = candidate
			break
		}
	}
	if value == "" {
		return nil, errutil.Internal("failed to generate a unique referral code", nil)
	}

	now := time.Now().UTC()
	code := &Code{
		ID:        s.node.Generate().String(),
		Code:      value,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.codes.WithTrx(tx).Create(ctx, code); err != nil {
			return err
		}

		return s.accounts.WithTrx(tx).Update(ctx, ownerID, map[string]any{
			"referral_code": code.Code,
			"updated_at":    now,
		})
	}); err != nil {
		return nil, err
	}

	zap.L().Info("referral code generated",
		zap.String("owner_id", ownerID),
		zap.String("code", code.Code),
	)

	return code, nil
}

// ValidateCode checks a code before signup. It never returns a domain error
// for a bad code; the outcome is in the Validation result.
func (s *Service) ValidateCode(ctx context.Context, raw string) (*Validation, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return &Validation{Valid: false, Reason: "referral code is required"}, nil
	}

	code, err := s.codes.FindOne(ctx, &Code{Code: value})
	if err != nil {
		return nil, err
	}
	if code == nil {
		return &Validation{Valid: false, Reason: "referral code not found"}, nil
	}

	owner, err := s.accounts.FindOne(ctx, &account.Account{ID: code.OwnerID})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return &Validation{Valid: false, Reason: "referrer no longer exists"}, nil
	}
	if owner.Status != account.StatusActive {
		return &Validation{Valid: false, Reason: "referrer is not active"}, nil
	}

	return &Validation{
		Valid:        true,
		Code:         code.Code,
		ReferrerID:   owner.ID,
		ReferrerName: owner.DisplayName(),
	}, nil
}

type RecordParams struct {
	Code        string  `json:"code"`
	ReferredID  string  `json:"referred_id"`
	BonusAmount float64 `json:"bonus_amount"`
}

// RecordReferral credits a referral once per referred account. The usage row,
// the code counters and the owner's pending rewards move in one locked
// transaction.
func (s *Service) RecordReferral(ctx context.Context, p RecordParams) (*Usage, error) {
	validation, err := s.ValidateCode(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, errutil.BadRequest(fmt.Sprintf("invalid referral code: %s", validation.Reason), nil)
	}

	if p.ReferredID == "" {
		return nil, errutil.BadRequest("referred_id is required", nil)
	}
	if validation.ReferrerID == p.ReferredID {
		return nil, errutil.BadRequest("cannot use your own referral code", nil)
	}
	if p.BonusAmount < 0 {
		return nil, errutil.BadRequest("bonus amount must not be negative", nil)
	}

	var usage *Usage

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		codesTx := s.codes.WithTrx(tx)
		usagesTx := s.usages.WithTrx(tx)
		accountsTx := s.accounts.WithTrx(tx)

		code, err := codesTx.FindOne(ctx, &Code{Code: validation.Code})
		if err != nil {
			return err
		}
		if code == nil {
			return errutil.BadRequest("invalid referral code: referral code not found", nil)
		}

		existing, err := usagesTx.FindOne(ctx, &Usage{Code: code.Code, ReferredID: p.ReferredID})
		if err != nil {
			return err
		}
		if existing != nil {
			return errutil.BadRequest("referral already recorded for this account", nil)
		}

		now := time.Now().UTC()
		usage = &Usage{
			ID:          s.node.Generate().String(),
			Code:        code.Code,
			ReferredID:  p.ReferredID,
			BonusAmount: p.BonusAmount,
			CreatedAt:   now,
		}

		if err := usagesTx.Create(ctx, usage); err != nil {
			return err
		}

		codeUpdates := map[string]any{
			"usage_count": gorm.Expr("usage_count + ?", 1),
			"updated_at":  now,
		}
		if p.BonusAmount > 0 {
			codeUpdates["total_rewards_earned"] = gorm.Expr("total_rewards_earned + ?", p.BonusAmount)
		}
		if err := codesTx.Update(ctx, code.ID, codeUpdates); err != nil {
			return err
		}

		if p.BonusAmount > 0 {
			if err := accountsTx.Update(ctx, code.OwnerID, map[string]any{
				"referral_rewards": gorm.Expr("referral_rewards + ?", p.BonusAmount),
				"updated_at":       now,
			}); err != nil {
				return err
			}
		}

		referred, err := accountsTx.FindOne(ctx, &account.Account{ID: p.ReferredID})
		if err != nil {
			return err
		}
		if referred != nil && referred.ReferredBy == "" {
			if err := accountsTx.Update(ctx, referred.ID, map[string]any{
				"referred_by": code.OwnerID,
				"updated_at":  now,
			}); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	zap.L().Info("referral recorded",
		zap.String("code", usage.Code),
		zap.String("referred_id", usage.ReferredID),
		zap.Float64("bonus_amount", usage.BonusAmount),
	)

	return usage, nil
}

// ClaimReward moves the account's pending referral rewards into the portfolio
// ledger. The account row lock makes the claim exactly-once: a concurrent or
// repeated claim sees zero pending rewards.
func (s *Service) ClaimReward(ctx context.Context, accountID string) (float64, *portfolio.Entry, error) {
	var (
		claimed float64
		entry   *portfolio.Entry
	)

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		accountsTx := s.accounts.WithTrx(tx)

		acct, err := accountsTx.FindOne(ctx, &account.Account{ID: accountID})
		if err != nil {
			return err
		}
		if acct == nil {
			return errutil.NotFound("account not found", nil)
		}

		if acct.ReferralRewards <= 0 {
			return errutil.BadRequest("no pending referral rewards", nil)
		}
		claimed = acct.ReferralRewards

		if err := accountsTx.Update(ctx, acct.ID, map[string]any{
			"referral_rewards": 0,
			"updated_at":       time.Now().UTC(),
		}); err != nil {
			return err
		}

		entry, err = s.portfolio.CreditInTx(ctx, tx, portfolio.MovementParams{
			AccountID:   acct.ID,
			Amount:      claimed,
			ReferenceID: fmt.Sprintf("%s:%s:%s", claimReferenceScope, acct.ID, s.node.Generate().String()),
			Description: claimDescription,
		})
		return err
	}); err != nil {
		return 0, nil, err
	}

	zap.L().Info("referral rewards claimed",
		zap.String("account_id", accountID),
		zap.Float64("amount", claimed),
	)

	return claimed, entry, nil
}

// Stats returns the owner-facing summary. An owner who never generated a code
// gets zero values, not an error.
func (s *Service) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	owner, err := s.accounts.FindOne(ctx, &account.Account{ID: ownerID})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, errutil.NotFound("account not found", nil)
	}

	stats := &Stats{PendingRewards: owner.ReferralRewards}

	code, err := s.codes.FindOne(ctx, &Code{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	if code != nil {
		stats.Code = code.Code
		stats.UsageCount = code.UsageCount
		stats.TotalRewardsEarned = code.TotalRewardsEarned
	}

	return stats, nil
}
