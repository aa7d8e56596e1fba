package repository

import (
	"context"
	"errors"

	"exchange-marketplace-backend/internal/features/order/models"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// List возвращает публичный список ордеров по возрастанию цены,
	// опционально отфильтрованный по типу.
	List(ctx context.Context, orderType string) ([]*models.Order, error)
	Delete(ctx context.Context, id string) error
}
