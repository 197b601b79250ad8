package referral

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/services/account"
	"coinvest-platform/services/portfolio"
	"coinvest-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&account.Account{},
		&Code{},
		&Usage{},
		&portfolio.Entry{},
		&portfolio.Balance{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	pf := portfolio.NewService(portfolio.ServiceParams{DB: db, Node: node})

	return NewService(ServiceParams{DB: db, Node: node, Portfolio: pf}), db
}

func seedAccount(t *testing.T, db *gorm.DB, id, status string) *account.Account {
	t.Helper()

	now := time.Now().UTC()
	acct := &account.Account{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  "User " + id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(acct).Error)
	return acct
}

func reloadAccount(t *testing.T, db *gorm.DB, id string) *account.Account {
	t.Helper()

	var acct account.Account
	require.NoError(t, db.First(&acct, "id = ?", id).Error)
	return &acct
}

func requireStatusErr(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %T: %v", err, err)
	require.Equal(t, status, be.Status())
}

func TestGenerateCode(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)
	require.Regexp(t, codePattern, code.Code)
	require.Equal(t, "owner-1", code.OwnerID)

	// the owner's account carries the code
	require.Equal(t, code.Code, reloadAccount(t, db, "owner-1").ReferralCode)
}

func TestGenerateCodeIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	first, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	second, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, first.Code, second.Code)

	var count int64
	require.NoError(t, db.Model(&Code{}).Where("owner_id = ?", "owner-1").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestGenerateCodeUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GenerateCode(context.Background(), "ghost")
	requireStatusErr(t, err, errutil.StatusNotFound)
}

func TestValidateCode(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	v, err := svc.ValidateCode(ctx, code.Code)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, "owner-1", v.ReferrerID)
	require.Equal(t, "User owner-1", v.ReferrerName)
}

func TestValidateCodeNormalisesInput(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	v, err := svc.ValidateCode(ctx, "  "+code.Code+" ")
	require.NoError(t, err)
	require.True(t, v.Valid)
}

func TestValidateCodeNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	v, err := svc.ValidateCode(context.Background(), "NOPE1234")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.NotEmpty(t, v.Reason)
}

func TestValidateCodeInactiveReferrer(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	require.NoError(t, db.Model(&account.Account{}).Where("id = ?", "owner-1").
		Update("status", account.StatusSuspended).Error)

	v, err := svc.ValidateCode(ctx, code.Code)
	require.NoError(t, err)
	require.False(t, v.Valid)
}

func TestRecordReferral(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	usage, err := svc.RecordReferral(ctx, RecordParams{
		Code:        code.Code,
		ReferredID:  "friend-1",
		BonusAmount: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 5.0, usage.BonusAmount)

	stats, err := svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.UsageCount)
	require.Equal(t, 5.0, stats.TotalRewardsEarned)
	require.Equal(t, 5.0, stats.PendingRewards)

	require.Equal(t, "owner-1", reloadAccount(t, db, "friend-1").ReferredBy)
}

func TestRecordReferralInvalidCode(t *testing.T) {
	svc, db := newTestService(t)
	seedAccount(t, db, "friend-1", account.StatusActive)

	_, err := svc.RecordReferral(context.Background(), RecordParams{
		Code:        "NOPE1234",
		ReferredID:  "friend-1",
		BonusAmount: 5,
	})
	requireStatusErr(t, err, errutil.StatusBadRequest)
}

func TestRecordReferralSelf(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{
		Code:        code.Code,
		ReferredID:  "owner-1",
		BonusAmount: 5,
	})
	requireStatusErr(t, err, errutil.StatusBadRequest)
}

func TestRecordReferralDuplicateCreditsOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 5})
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 5})
	requireStatusErr(t, err, errutil.StatusBadRequest)

	// credited once: totals are +5, not +10
	stats, err := svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.UsageCount)
	require.Equal(t, 5.0, stats.TotalRewardsEarned)
	require.Equal(t, 5.0, stats.PendingRewards)
}

func TestClaimRewardExactlyOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)
	seedAccount(t, db, "friend-2", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 5})
	require.NoError(t, err)
	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-2", BonusAmount: 7.5})
	require.NoError(t, err)

	claimed, entry, err := svc.ClaimReward(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 12.5, claimed)
	require.Equal(t, portfolio.EntryTypeCredit, entry.Type)

	// the pending balance is spent and the portfolio holds the money
	require.Equal(t, 0.0, reloadAccount(t, db, "owner-1").ReferralRewards)

	balance, err := svc.portfolio.GetBalance(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 12.5, balance.Balance)

	// an immediate second claim finds nothing
	_, _, err = svc.ClaimReward(ctx, "owner-1")
	requireStatusErr(t, err, errutil.StatusBadRequest)

	// lifetime totals survive the claim
	stats, err := svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 12.5, stats.TotalRewardsEarned)
	require.Equal(t, 0.0, stats.PendingRewards)
}

func TestClaimRewardChainStaysValid(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 5})
	require.NoError(t, err)

	_, _, err = svc.ClaimReward(ctx, "owner-1")
	require.NoError(t, err)

	valid, err := svc.portfolio.VerifyChain(ctx, "owner-1")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestClaimRewardRepeatsAfterNewReferrals(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)
	seedAccount(t, db, "friend-2", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 5})
	require.NoError(t, err)

	claimed, _, err := svc.ClaimReward(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 5.0, claimed)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-2", BonusAmount: 7.5})
	require.NoError(t, err)

	claimed, _, err = svc.ClaimReward(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 7.5, claimed)

	balance, err := svc.portfolio.GetBalance(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 12.5, balance.Balance)
}

func TestClaimRewardUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.ClaimReward(context.Background(), "ghost")
	requireStatusErr(t, err, errutil.StatusNotFound)
}

func TestStatsWithoutCode(t *testing.T) {
	svc, db := newTestService(t)
	seedAccount(t, db, "owner-1", account.StatusActive)

	stats, err := svc.Stats(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, stats.Code)
	require.Equal(t, int64(0), stats.UsageCount)
	require.Equal(t, 0.0, stats.TotalRewardsEarned)
}

func TestRecordReferralZeroBonus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, db, "owner-1", account.StatusActive)
	seedAccount(t, db, "friend-1", account.StatusActive)

	code, err := svc.GenerateCode(ctx, "owner-1")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, RecordParams{Code: code.Code, ReferredID: "friend-1", BonusAmount: 0})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.UsageCount)
	require.Equal(t, 0.0, stats.TotalRewardsEarned)
	require.Equal(t, 0.0, stats.PendingRewards)
}
