package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/services"
)

type CategoryHandler struct {
	categories *services.CategoryService
}

func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cats, err := h.categories.List(c.Request.Context(), userID, c.Query("family_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	cat, err := h.categories.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.categories.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// SuggestCategory runs the keyword categorizer on a free-form label.
func (h *CategoryHandler) SuggestCategory(c *gin.Context) {
	var req models.SuggestCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestion := h.categories.Suggest(req.Label)
	c.JSON(http.StatusOK, gin.H{
		"label":         req.Label,
		"category":      suggestion.Category,
		"main_category": suggestion.MainCategory,
	})
}
