package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exchange-marketplace-backend/internal/common/middleware"
	"exchange-marketplace-backend/internal/features/auth/token"
	"exchange-marketplace-backend/internal/features/user/models"
	"exchange-marketplace-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
	codec   *token.Codec
}

func NewUserHandler(svc service.UserService, codec *token.Codec) *UserHandler {
	return &UserHandler{service: svc, codec: codec}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	users.Use(middleware.RequireSession(h.codec))
	{
		users.GET("/me", h.getMe)
		users.PUT("/me", h.updateMe)
	}
}

// CurrentUser резолвит локального пользователя по claims сессии.
// Legacy-токены не несут uid, поэтому резолвим по Telegram-профилю,
// создавая запись при первом обращении.
func (h *UserHandler) CurrentUser(c *gin.Context) (*models.User, bool) {
	claims, ok := middleware.GetSession(c)
	if !ok || claims.Profile.ID == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	user, err := h.service.GetOrCreateByTelegram(c.Request.Context(),
		claims.Profile.ID, claims.Profile.Username, claims.Profile.FirstName, claims.Profile.PhotoURL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	return user, true
}

// @Summary Get current user profile
// @Description Returns the profile of the authenticated user, creating the record on first access
// @Tags users
// @Produce json
// @Security SessionToken
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	user, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Update current user profile
// @Description Updates the allowed profile fields of the authenticated user
// @Tags users
// @Accept json
// @Produce json
// @Security SessionToken
// @Param payload body models.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me [put]
func (h *UserHandler) updateMe(c *gin.Context) {
	user, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	var patch models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateProfile(c.Request.Context(), user.ID, &patch)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
