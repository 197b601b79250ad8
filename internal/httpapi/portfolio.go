package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coinvest-platform/pkg/db/pagination"
	"coinvest-platform/pkg/errutil"
)

func (h *handler) portfolioBalance(c *gin.Context) {
	balance, err := h.portfolio.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *handler) portfolioEntries(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	entries, info, err := h.portfolio.ListEntriesPage(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "page_info": info})
}

func (h *handler) portfolioVerify(c *gin.Context) {
	valid, err := h.portfolio.VerifyChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
