package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"exchange-marketplace-backend/internal/features/order/models"
	"exchange-marketplace-backend/internal/features/order/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.OrderRepository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, owner_id, type, asset, fiat, price, available_amount, limit_min, limit_max, payment_methods, terms, created_at`

// Create создает новый ордер
func (r *postgresRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, owner_id, type, asset, fiat, price, available_amount, limit_min, limit_max, payment_methods, terms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.OwnerID, order.Type, order.Asset, order.Fiat,
		order.Price, order.AvailableAmount, order.LimitMin, order.LimitMax,
		pq.Array(order.PaymentMethods), order.Terms)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID получает ордер по ID
func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// List возвращает публичный список ордеров по возрастанию цены
func (r *postgresRepository) List(ctx context.Context, orderType string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if orderType != "" {
		query += ` WHERE type = $1`
		args = append(args, orderType)
	}
	query += ` ORDER BY price ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Delete удаляет ордер
func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrOrderNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var terms sql.NullString

	err := row.Scan(&order.ID, &order.OwnerID, &order.Type, &order.Asset, &order.Fiat,
		&order.Price, &order.AvailableAmount, &order.LimitMin, &order.LimitMax,
		pq.Array(&order.PaymentMethods), &terms, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	order.Terms = terms.String
	if order.PaymentMethods == nil {
		order.PaymentMethods = []string{}
	}

	return &order, nil
}
