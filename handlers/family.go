package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/services"
)

type FamilyHandler struct {
	families *services.FamilyService
}

func NewFamilyHandler(families *services.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateFamilyRequest
	if !bindJSON(c, &req) {
		return
	}

	family, err := h.families.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, family)
}

func (h *FamilyHandler) ListFamilies(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	families, err := h.families.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, families)
}

func (h *FamilyHandler) GetFamily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	detail, err := h.families.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *FamilyHandler) UpdateFamily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateFamilyRequest
	if !bindJSON(c, &req) {
		return
	}

	family, err := h.families.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, family)
}

func (h *FamilyHandler) DeleteFamily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.families.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Family deleted"})
}

func (h *FamilyHandler) AddMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	detail, err := h.families.AddMember(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *FamilyHandler) RemoveMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.families.RemoveMember(c.Request.Context(), userID, c.Param("id"), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *FamilyHandler) SetMemberRole(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.SetRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.families.SetMemberRole(c.Request.Context(), userID, c.Param("id"), c.Param("user_id"), req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}
