package httpapi

import (
	"net/http"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/services/investment"

	"github.com/gin-gonic/gin"
)

func (h *handler) createInvestment(c *gin.Context) {
	var req investment.CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	inv, err := h.investments.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

func (h *handler) listInvestments(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		_ = c.Error(errutil.BadRequest("owner_id query parameter is required", nil))
		return
	}

	investments, err := h.investments.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": investments})
}

func (h *handler) getInvestment(c *gin.Context) {
	inv, err := h.investments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *handler) investmentReturns(c *gin.Context) {
	inv, err := h.investments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investment_id":  inv.ID,
		"status":         inv.Status,
		"amount":         inv.Amount,
		"accrued_return": h.investments.AccruedReturn(inv),
		"return_rate":    inv.ReturnRate,
		"duration_days":  inv.DurationDays,
		"start_date":     inv.StartDate,
		"end_date":       inv.EndDate,
	})
}

func (h *handler) activateInvestment(c *gin.Context) {
	inv, err := h.investments.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *handler) cancelInvestment(c *gin.Context) {
	inv, err := h.investments.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *handler) rejectInvestment(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	inv, err := h.investments.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *handler) completeInvestment(c *gin.Context) {
	inv, err := h.investments.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}
