package models

// TelegramProfile — проверенный набор полей профиля Telegram на момент
// auth_date. После создания не изменяется.
// @Description Verified Telegram profile
type TelegramProfile struct {
	ID        int64  `json:"id" example:"123456789"`
	Username  string `json:"username,omitempty" example:"johndoe"`
	FirstName string `json:"first_name,omitempty" example:"John"`
	LastName  string `json:"last_name,omitempty" example:"Doe"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date,omitempty" example:"1735689600"`
}

// AuthResult — итог завершённого handshake: сессионный токен и профиль,
// на который он выписан.
// @Description Completed authentication result
type AuthResult struct {
	Token   string          `json:"token"`
	Profile TelegramProfile `json:"profile"`
}

// BotCallbackRequest — тело колбэка бота (шаг 3-4 handshake).
// State — корреляционный handle, выданный браузеру на шаге initiate.
// @Description Payload posted by the bot process after collecting the user profile
type BotCallbackRequest struct {
	State     string `json:"state" binding:"required"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// Profile собирает снапшот профиля из тела колбэка.
func (r *BotCallbackRequest) Profile() TelegramProfile {
	return TelegramProfile{
		ID:        r.ID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		PhotoURL:  r.PhotoURL,
	}
}

// DeeplinkResponse — ссылка t.me для старта бота.
// @Description Deep link into the Telegram bot
type DeeplinkResponse struct {
	Deeplink string `json:"deeplink" example:"https://t.me/examplebot?start=auth_abc123"`
}
