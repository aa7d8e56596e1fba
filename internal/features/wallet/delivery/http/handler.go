package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exchange-marketplace-backend/internal/common/middleware"
	"exchange-marketplace-backend/internal/features/auth/token"
	userhttp "exchange-marketplace-backend/internal/features/user/delivery/http"
	"exchange-marketplace-backend/internal/features/wallet/service"
)

type WalletHandler struct {
	service service.WalletService
	users   *userhttp.UserHandler
	codec   *token.Codec
}

func NewWalletHandler(svc service.WalletService, users *userhttp.UserHandler, codec *token.Codec) *WalletHandler {
	return &WalletHandler{service: svc, users: users, codec: codec}
}

func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup) {
	wallet := router.Group("/users/me/wallet")
	wallet.Use(middleware.RequireSession(h.codec))
	{
		wallet.PUT("", h.attachWallet)
		wallet.DELETE("", h.detachWallet)
	}
}

type attachWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// @Summary Attach TON payout wallet
// @Description Validates and stores the user's TON wallet address
// @Tags wallet
// @Accept json
// @Produce json
// @Security SessionToken
// @Param payload body attachWalletRequest true "Wallet address"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Invalid ton address"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me/wallet [put]
func (h *WalletHandler) attachWallet(c *gin.Context) {
	user, ok := h.users.CurrentUser(c)
	if !ok {
		return
	}

	var req attachWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Attach(c.Request.Context(), user.ID, req.Address)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAddress) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ton address"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// @Summary Detach TON payout wallet
// @Description Removes the user's stored TON wallet address
// @Tags wallet
// @Produce json
// @Security SessionToken
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me/wallet [delete]
func (h *WalletHandler) detachWallet(c *gin.Context) {
	user, ok := h.users.CurrentUser(c)
	if !ok {
		return
	}

	updated, err := h.service.Detach(c.Request.Context(), user.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
