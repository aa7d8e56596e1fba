package token

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"exchange-marketplace-backend/internal/features/auth/models"
)

// CookieName — имя cookie с сессионным токеном.
const CookieName = "tg_session"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims — проверенное содержимое сессионного токена.
type SessionClaims struct {
	// Subject — telegram id в строковом виде (claim sub).
	Subject string
	// UserID — id локального пользователя (claim uid), пустой для
	// токенов, выписанных до резолва пользователя.
	UserID  string
	Profile models.TelegramProfile
}

// Codec issues and parses signed session tokens (HS256). Tokens are
// stateless: possession of a valid unexpired token is the whole credential.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// TTL возвращает срок жизни выдаваемых токенов.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue выпускает подписанный токен на проверенный профиль. userID может
// быть пустым (legacy-путь без резолва локального пользователя).
func (c *Codec) Issue(profile *models.TelegramProfile, userID string) (string, error) {
	now := c.now()

	claims := jwtlib.MapClaims{
		"sub": strconv.FormatInt(profile.ID, 10),
		"tg": map[string]interface{}{
			"id":         profile.ID,
			"username":   profile.Username,
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
			"photo_url":  profile.PhotoURL,
		},
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	}
	if userID != "" {
		claims["uid"] = userID
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия токена.
func (c *Codec) Parse(raw string) (*SessionClaims, error) {
	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	if uid, ok := mapClaims["uid"].(string); ok {
		claims.UserID = uid
	}

	tg, ok := mapClaims["tg"].(map[string]interface{})
	if !ok {
		return nil, ErrInvalidToken
	}
	if id, ok := tg["id"].(float64); ok {
		claims.Profile.ID = int64(id)
	}
	if s, ok := tg["username"].(string); ok {
		claims.Profile.Username = s
	}
	if s, ok := tg["first_name"].(string); ok {
		claims.Profile.FirstName = s
	}
	if s, ok := tg["last_name"].(string); ok {
		claims.Profile.LastName = s
	}
	if s, ok := tg["photo_url"].(string); ok {
		claims.Profile.PhotoURL = s
	}

	return claims, nil
}

// FromRequest достает токен из Authorization: Bearer, затем из cookie;
// заголовок имеет приоритет.
func FromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
