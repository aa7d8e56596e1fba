package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exchange-marketplace-backend/internal/common/middleware"
	"exchange-marketplace-backend/internal/features/auth/token"
	"exchange-marketplace-backend/internal/features/order/models"
	"exchange-marketplace-backend/internal/features/order/service"
	userhttp "exchange-marketplace-backend/internal/features/user/delivery/http"
)

type OrderHandler struct {
	service service.OrderService
	users   *userhttp.UserHandler
	codec   *token.Codec
}

func NewOrderHandler(svc service.OrderService, users *userhttp.UserHandler, codec *token.Codec) *OrderHandler {
	return &OrderHandler{service: svc, users: users, codec: codec}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		// Листинг публичный, токен не требуется
		orders.GET("", h.listOrders)

		authed := orders.Group("")
		authed.Use(middleware.RequireSession(h.codec))
		{
			authed.POST("", h.createOrder)
			authed.DELETE("/:id", h.deleteOrder)
		}
	}
}

// @Summary List orders
// @Description Public listing of exchange orders, price ascending
// @Tags orders
// @Produce json
// @Param type query string false "Filter by order type" Enums(buy, sell)
// @Success 200 {array} models.Order
// @Router /orders [get]
func (h *OrderHandler) listOrders(c *gin.Context) {
	orderType := c.Query("type")
	if orderType != "" && orderType != models.TypeBuy && orderType != models.TypeSell {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order type"})
		return
	}

	orders, err := h.service.List(c.Request.Context(), orderType)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// @Summary Create order
// @Description Creates a new order owned by the authenticated user
// @Tags orders
// @Accept json
// @Produce json
// @Security SessionToken
// @Param payload body models.CreateOrderRequest true "Order input"
// @Success 201 {object} models.Order
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /orders [post]
func (h *OrderHandler) createOrder(c *gin.Context) {
	user, ok := h.users.CurrentUser(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.service.Create(c.Request.Context(), user.ID, &req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// @Summary Delete order
// @Description Deletes an order owned by the authenticated user
// @Tags orders
// @Produce json
// @Security SessionToken
// @Param id path string true "Order ID"
// @Success 204
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Order not found"
// @Router /orders/{id} [delete]
func (h *OrderHandler) deleteOrder(c *gin.Context) {
	user, ok := h.users.CurrentUser(c)
	if !ok {
		return
	}

	err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrOrderNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, service.ErrNotOwner):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
