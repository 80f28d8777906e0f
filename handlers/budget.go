package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/services"
)

// BudgetHandler serves budget threads.
type BudgetHandler struct {
	budgets *services.BudgetService
}

func NewBudgetHandler(budgets *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.budgets.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	budgets, err := h.budgets.List(c.Request.Context(), userID, c.Query("scope"), c.Query("family_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	b, err := h.budgets.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.budgets.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.budgets.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}

func (h *BudgetHandler) GetBudgetSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.budgets.Summary(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
