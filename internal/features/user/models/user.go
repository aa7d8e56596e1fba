package models

import "time"

// User представляет запись пользователя маркетплейса.
// Привязка к Telegram — по telegram_id; id генерируется сервером.
// @Description Marketplace user record
type User struct {
	ID         string                 `json:"id" example:"8b2a9c1e-63a0-4a7e-9a55-2f4f30f9a111"`
	Email      string                 `json:"email,omitempty" example:"user@example.com"`
	Username   string                 `json:"username,omitempty" example:"johndoe"`
	FullName   string                 `json:"full_name,omitempty" example:"John Doe"`
	AvatarURL  string                 `json:"avatar_url,omitempty"`
	TelegramID string                 `json:"telegram_id,omitempty" example:"123456789"`
	TonWallet  string                 `json:"ton_wallet,omitempty" example:"EQD4FPq-PRD4YtG87wgL7AErgQwHUMFQ-JxyYw8jzBPhqjfH"`
	Rating     float64                `json:"rating" example:"4.8"`
	Settings   map[string]interface{} `json:"settings_json,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// UpdateProfileRequest — частичное обновление профиля. Непереданные поля
// не трогаются.
// @Description Partial profile update
type UpdateProfileRequest struct {
	FullName  *string                 `json:"full_name,omitempty"`
	AvatarURL *string                 `json:"avatar_url,omitempty"`
	Rating    *float64                `json:"rating,omitempty"`
	Settings  *map[string]interface{} `json:"settings_json,omitempty"`
}
