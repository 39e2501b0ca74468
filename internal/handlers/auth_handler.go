package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/auth"
	"github.com/guildnet/bansync/internal/models"
	"github.com/guildnet/bansync/internal/repository"
)

type AuthHandler struct {
	adminRepo  *repository.AdminRepository
	jwtService *auth.JWTService
}

func NewAuthHandler(adminRepo *repository.AdminRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		adminRepo:  adminRepo,
		jwtService: jwtService,
	}
}

// Login authenticates an operator and returns a token
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	admin, err := h.adminRepo.GetByEmail(req.Email)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateToken(admin.ID, admin.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{Token: token, Admin: *admin})
}

// GetMe returns the authenticated operator
func (h *AuthHandler) GetMe(c *gin.Context) {
	adminID, exists := c.Get("admin_id")
	if !exists {
		ErrorResponse(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	admin, err := h.adminRepo.GetByID(adminID.(uuid.UUID))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Admin not found")
		return
	}

	c.JSON(http.StatusOK, admin)
}
