package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"exchange-marketplace-backend/internal/common/cache"
	"exchange-marketplace-backend/internal/common/logger"
	"exchange-marketplace-backend/internal/features/order/models"
	"exchange-marketplace-backend/internal/features/order/repository"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOwner      = errors.New("not the order owner")
)

// listCacheTTL — короткий TTL публичного списка: список горячий, но
// устаревать надолго не должен.
const listCacheTTL = 30 * time.Second

type OrderService interface {
	List(ctx context.Context, orderType string) ([]*models.Order, error)
	Create(ctx context.Context, ownerID string, req *models.CreateOrderRequest) (*models.Order, error)
	Delete(ctx context.Context, ownerID, orderID string) error
}

type orderService struct {
	repo  repository.OrderRepository
	cache *cache.Service
}

// NewOrderService создает сервис ордеров. cache может быть nil — тогда
// каждый запрос списка идёт в базу.
func NewOrderService(repo repository.OrderRepository, cacheSvc *cache.Service) OrderService {
	return &orderService{repo: repo, cache: cacheSvc}
}

func (s *orderService) List(ctx context.Context, orderType string) ([]*models.Order, error) {
	cacheKey := "orders:list:" + orderType

	if s.cache != nil {
		var cached []*models.Order
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.Warn().Err(err).Msg("Orders cache read failed, falling back to database")
		}
	}

	orders, err := s.repo.List(ctx, orderType)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, orders, listCacheTTL); err != nil {
			logger.Warn().Err(err).Msg("Orders cache write failed")
		}
	}

	return orders, nil
}

func (s *orderService) Create(ctx context.Context, ownerID string, req *models.CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Type:            req.Type,
		Asset:           req.Asset,
		Fiat:            req.Fiat,
		Price:           req.Price,
		AvailableAmount: req.AvailableAmount,
		LimitMin:        req.LimitMin,
		LimitMax:        req.LimitMax,
		PaymentMethods:  req.PaymentMethods,
		Terms:           req.Terms,
		CreatedAt:       time.Now(),
	}
	if order.PaymentMethods == nil {
		order.PaymentMethods = []string{}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.invalidateList(ctx)

	return order, nil
}

func (s *orderService) Delete(ctx context.Context, ownerID, orderID string) error {
	// Жёсткая проверка владельца перед удалением
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if order.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	s.invalidateList(ctx)

	return nil
}

func (s *orderService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrders(ctx); err != nil {
		logger.Warn().Err(err).Msg("Orders cache invalidation failed")
	}
}
