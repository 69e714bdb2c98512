package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/middleware"
)

type settleRequest struct {
	AmountToSettle decimal.Decimal `json:"amountToSettle" binding:"required"`
	Version        int64           `json:"version"`
}

func (h *Handler) balances(c *gin.Context) {
	summary, err := h.Settlements.Balances(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) listSettlements(c *gin.Context) {
	settlements, err := h.Settlements.ListOpen(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

func (h *Handler) settlementHistory(c *gin.Context) {
	history, err := h.Settlements.History(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.Settlements.Settle(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"), c.Param("settlementId"),
		req.AmountToSettle, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
