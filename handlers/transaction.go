package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/services"
)

type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.transactions.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ListTransactions accepts scope, family_id, type, category, from, to and
// limit query parameters.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	from, err := queryTime(c, "from", false)
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	txns, err := h.transactions.List(c.Request.Context(), userID, services.ListTransactionsParams{
		Scope:    c.Query("scope"),
		FamilyID: c.Query("family_id"),
		Type:     models.TransactionType(c.Query("type")),
		Category: c.Query("category"),
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	t, err := h.transactions.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.transactions.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.transactions.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
