package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *UserHandler) SetupTOTP(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	resp, err := h.users.SetupTOTP(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) VerifyTOTP(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.EnableTOTP(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Two-factor authentication enabled"})
}

func (h *UserHandler) DisableTOTP(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.DisableTOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.DisableTOTP(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Two-factor authentication disabled"})
}

func (h *UserHandler) SetActiveFamily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.SetActiveFamilyRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.SetActiveFamily(c.Request.Context(), userID, req.FamilyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ExportData returns everything stored about the user as a JSON download.
func (h *UserHandler) ExportData(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	export, err := h.users.Export(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("budget-export-%s.json", export.ExportedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, export)
}

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.DeleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.DeleteAccount(c.Request.Context(), userID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
