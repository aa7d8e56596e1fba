package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exchange-marketplace-backend/internal/features/auth/token"
)

const sessionContextKey = "session"

// RequireSession проверяет сессионный токен из заголовка Authorization
// (Bearer) или из cookie tg_session; заголовок имеет приоритет.
func RequireSession(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := token.FromRequest(c.Request)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := codec.Parse(raw)
		if err != nil {
			msg := "Invalid token"
			if stderrors.Is(err, token.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(sessionContextKey, claims)
		c.Next()
	}
}

// GetSession возвращает распарсенные claims текущей сессии
func GetSession(c *gin.Context) (*token.SessionClaims, bool) {
	v, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*token.SessionClaims)
	return claims, ok
}
