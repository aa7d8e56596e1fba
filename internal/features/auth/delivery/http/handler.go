package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"exchange-marketplace-backend/internal/common/middleware"
	"exchange-marketplace-backend/internal/features/auth/models"
	"exchange-marketplace-backend/internal/features/auth/service"
	"exchange-marketplace-backend/internal/features/auth/signature"
	"exchange-marketplace-backend/internal/features/auth/token"
)

type AuthHandler struct {
	service     service.AuthService
	codec       *token.Codec
	frontendURL string
}

func NewAuthHandler(svc service.AuthService, codec *token.Codec, frontendURL string) *AuthHandler {
	return &AuthHandler{
		service:     svc,
		codec:       codec,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.GET("/telegram", h.startTelegram)
		auth.GET("/telegram/deeplink", h.deeplink)
		auth.GET("/telegram/callback", h.telegramCallback)
		auth.POST("/telegram/callback/bot", h.botCallback)
		auth.POST("/telegram/miniapp", h.miniAppLogin)
		auth.GET("/token", h.exchangeToken)
		auth.GET("/success", h.successRedirect)
		auth.POST("/logout", h.logout)

		auth.GET("/me", middleware.RequireSession(h.codec), h.me)
	}
}

// @Summary Start bot-mediated Telegram login
// @Description Registers the browser-chosen state and redirects to the bot deep link (start=auth_<state>)
// @Tags auth
// @Param state query string true "Browser-chosen correlation state"
// @Success 303
// @Failure 400 {object} map[string]string "state is required"
// @Router /auth/telegram [get]
func (h *AuthHandler) startTelegram(c *gin.Context) {
	deeplink, err := h.service.Initiate(c.Query("state"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "state is required"})
		return
	}

	c.Redirect(http.StatusSeeOther, deeplink)
}

// @Summary Get bot deep link
// @Description Returns the t.me link with a start parameter for the legacy widget flow
// @Tags auth
// @Produce json
// @Param state query string false "Correlation state"
// @Success 200 {object} models.DeeplinkResponse
// @Router /auth/telegram/deeplink [get]
func (h *AuthHandler) deeplink(c *gin.Context) {
	c.JSON(http.StatusOK, models.DeeplinkResponse{Deeplink: h.service.Deeplink(c.Query("state"))})
}

// @Summary Legacy Telegram widget callback
// @Description Validates signed query fields from the Telegram login widget, sets the session cookie and redirects to the frontend
// @Tags auth
// @Success 303
// @Failure 400 {object} map[string]string "Invalid Telegram auth data"
// @Router /auth/telegram/callback [get]
func (h *AuthHandler) telegramCallback(c *gin.Context) {
	fields := make(map[string]string, len(c.Request.URL.Query()))
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	result, err := h.service.DirectLogin(fields)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": directLoginError(err)})
		return
	}

	h.setSessionCookie(c, result.Token)
	// 303 See Other, чтобы браузер сохранил cookie при редиректе
	c.Redirect(http.StatusSeeOther, h.frontendURL)
}

// @Summary Bot handshake callback
// @Description Called by the bot process with the collected profile; requires the shared X-Bot-Token secret
// @Tags auth
// @Accept json
// @Produce json
// @Param X-Bot-Token header string true "Shared bot secret"
// @Param payload body models.BotCallbackRequest true "Collected profile and state"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Invalid state or missing telegram id"
// @Failure 401 {object} map[string]string "Unauthorized bot"
// @Router /auth/telegram/callback/bot [post]
func (h *AuthHandler) botCallback(c *gin.Context) {
	var req models.BotCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
		return
	}

	err := h.service.CompleteFromBot(c.Request.Context(), c.GetHeader("X-Bot-Token"), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, service.ErrUnauthorizedBot):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized bot"})
	case errors.Is(err, service.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
	case errors.Is(err, service.ErrMissingIdentity):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing telegram id"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// @Summary Telegram Mini App login
// @Description Validates Mini App init_data and issues a session token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} models.AuthResult
// @Failure 400 {object} map[string]string "Invalid init data"
// @Router /auth/telegram/miniapp [post]
func (h *AuthHandler) miniAppLogin(c *gin.Context) {
	var body struct {
		InitData string `json:"init_data"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.InitData == "" {
		body.InitData = c.GetHeader("init_data")
	}

	result, err := h.service.MiniAppLogin(c.Request.Context(), body.InitData)
	if err != nil {
		if errors.Is(err, service.ErrMissingIdentity) ||
			errors.Is(err, signature.ErrMissingFields) ||
			errors.Is(err, signature.ErrInvalidSignature) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid init data"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, result)
}

// @Summary Exchange state for a session token
// @Description Returns the handshake result exactly once; polled by the browser until ready
// @Tags auth
// @Produce json
// @Param state query string true "Correlation state"
// @Success 200 {object} models.AuthResult
// @Failure 400 {object} map[string]string "Invalid or expired state"
// @Router /auth/token [get]
func (h *AuthHandler) exchangeToken(c *gin.Context) {
	result, err := h.service.Exchange(c.Query("state"))
	if err != nil {
		// Неизвестный, истёкший и незавершённый state неразличимы снаружи
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired state"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Current identity
// @Description Returns the Telegram profile from the presented session token (Bearer header or cookie)
// @Tags auth
// @Produce json
// @Security SessionToken
// @Success 200 {object} models.TelegramProfile
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	claims, ok := middleware.GetSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, claims.Profile)
}

// @Summary Logout
// @Description Clears the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	c.SetSameSite(h.cookieSameSite(c))
	c.SetCookie(token.CookieName, "", -1, "/", "", h.cookieSecure(c), true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Post-auth frontend redirect
// @Description Proxy route redirecting the browser to the frontend success page with the same state
// @Tags auth
// @Param state query string true "Correlation state"
// @Success 303
// @Router /auth/success [get]
func (h *AuthHandler) successRedirect(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, h.frontendURL+"/auth/success?state="+c.Query("state"))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sessionToken string) {
	c.SetSameSite(h.cookieSameSite(c))
	c.SetCookie(token.CookieName, sessionToken, int(h.codec.TTL().Seconds()), "/", "", h.cookieSecure(c), true)
}

// cookieSecure: Secure только когда запрос пришёл по шифрованному транспорту
func (h *AuthHandler) cookieSecure(c *gin.Context) bool {
	return c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// Для кросс-сайтовых запросов современным браузерам нужна
// SameSite=None; Secure, иначе откатываемся на Lax.
func (h *AuthHandler) cookieSameSite(c *gin.Context) http.SameSite {
	if h.cookieSecure(c) {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func directLoginError(err error) string {
	switch {
	case errors.Is(err, signature.ErrMissingFields):
		return "Invalid Telegram auth data"
	case errors.Is(err, signature.ErrAuthDataExpired):
		return "Auth data expired"
	case errors.Is(err, signature.ErrInvalidSignature):
		return "Bad signature"
	default:
		return "Invalid Telegram auth data"
	}
}
