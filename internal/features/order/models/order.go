package models

import "time"

const (
	TypeBuy  = "buy"
	TypeSell = "sell"
)

// Order представляет ордер на обмен валюты.
// @Description Currency-exchange order
type Order struct {
	ID              string    `json:"id" example:"6f3c5d0a-5f0e-4aa1-8b7e-0f6f1c2d3e44"`
	OwnerID         string    `json:"owner_id"`
	Type            string    `json:"type" example:"sell" enums:"buy,sell"`
	Asset           string    `json:"asset" example:"USDT"`
	Fiat            string    `json:"fiat" example:"RUB"`
	Price           float64   `json:"price" example:"97.5"`
	AvailableAmount float64   `json:"available_amount" example:"1500"`
	LimitMin        float64   `json:"limit_min" example:"1000"`
	LimitMax        float64   `json:"limit_max" example:"100000"`
	PaymentMethods  []string  `json:"payment_methods" example:"sbp,card"`
	Terms           string    `json:"terms,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateOrderRequest — входные данные нового ордера.
// @Description New order input
type CreateOrderRequest struct {
	Type            string   `json:"type" binding:"required,oneof=buy sell"`
	Asset           string   `json:"asset" binding:"required"`
	Fiat            string   `json:"fiat" binding:"required"`
	Price           float64  `json:"price" binding:"required,gt=0"`
	AvailableAmount float64  `json:"available_amount" binding:"required,gt=0"`
	LimitMin        float64  `json:"limit_min" binding:"gte=0"`
	LimitMax        float64  `json:"limit_max" binding:"gte=0"`
	PaymentMethods  []string `json:"payment_methods"`
	Terms           string   `json:"terms"`
}
