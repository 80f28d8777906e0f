package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/services"
)

type SummaryHandler struct {
	summaries *services.SummaryService
}

func NewSummaryHandler(summaries *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// GetSummary serves the dashboard. Unknown periods fall back to month.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	dash, err := h.summaries.Dashboard(c.Request.Context(), userID,
		c.Query("period"), c.Query("scope"), c.Query("family_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
