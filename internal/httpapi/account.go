package httpapi

import (
	"net/http"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/services/account"

	"github.com/gin-gonic/gin"
)

func (h *handler) createAccount(c *gin.Context) {
	var req account.CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	acct, err := h.accounts.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, acct)
}

func (h *handler) getAccount(c *gin.Context) {
	acct, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, acct)
}
