package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/middleware"
	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/service"
)

type expenseSplitRequest struct {
	UserID string          `json:"userId" binding:"required"`
	Share  decimal.Decimal `json:"share"`
}

type addExpenseRequest struct {
	Name        string                `json:"name" binding:"required"`
	Amount      decimal.Decimal       `json:"amount" binding:"required"`
	PayerID     string                `json:"payerId" binding:"required"`
	SplitMethod string                `json:"splitMethod" binding:"required"`
	Splits      []expenseSplitRequest `json:"splits" binding:"required"`
	Version     int64                 `json:"version"`
}

func (h *Handler) addExpense(c *gin.Context) {
	var req addExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	splits := make([]models.ExpenseSplit, len(req.Splits))
	for i, s := range req.Splits {
		splits[i] = models.ExpenseSplit{UserID: s.UserID, Share: s.Share}
	}

	result, err := h.Expenses.AddExpense(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"), service.ExpenseInput{
			Name:        req.Name,
			Amount:      req.Amount,
			PayerID:     req.PayerID,
			SplitMethod: models.SplitMethod(req.SplitMethod),
			Splits:      splits,
		}, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) deleteExpense(c *gin.Context) {
	result, err := h.Expenses.DeleteExpense(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"), c.Param("expenseId"), queryVersion(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
