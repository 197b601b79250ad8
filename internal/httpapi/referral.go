package httpapi

import (
	"net/http"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/services/referral"

	"github.com/gin-gonic/gin"
)

func (h *handler) generateReferralCode(c *gin.Context) {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	code, err := h.referrals.GenerateCode(c.Request.Context(), req.OwnerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, code)
}

func (h *handler) validateReferralCode(c *gin.Context) {
	validation, err := h.referrals.ValidateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, validation)
}

func (h *handler) recordReferral(c *gin.Context) {
	var req struct {
		Code        string   `json:"code"`
		ReferredID  string   `json:"referred_id"`
		BonusAmount *float64 `json:"bonus_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	bonus := h.cfg.Referral.BonusAmount
	if req.BonusAmount != nil {
		bonus = *req.BonusAmount
	}

	usage, err := h.referrals.RecordReferral(c.Request.Context(), referral.RecordParams{
		Code:        req.Code,
		ReferredID:  req.ReferredID,
		BonusAmount: bonus,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, usage)
}

func (h *handler) claimReferralRewards(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	amount, entry, err := h.referrals.ClaimReward(c.Request.Context(), req.AccountID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"claimed_amount": amount,
		"entry":          entry,
	})
}

func (h *handler) referralStats(c *gin.Context) {
	stats, err := h.referrals.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
