package token_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-marketplace-backend/internal/features/auth/models"
	"exchange-marketplace-backend/internal/features/auth/token"
)

const testSecret = "test-session-secret"

func testProfile() *models.TelegramProfile {
	return &models.TelegramProfile{
		ID:        42,
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Liddell",
		PhotoURL:  "https://t.me/i/userpic/320/alice.jpg",
	}
}

func TestIssueParse_RoundTrip(t *testing.T) {
	codec := token.NewCodec(testSecret, 30*24*time.Hour)

	raw, err := codec.Issue(testProfile(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, int64(42), claims.Profile.ID)
	assert.Equal(t, "alice", claims.Profile.Username)
	assert.Equal(t, "Alice", claims.Profile.FirstName)
	assert.Equal(t, "Liddell", claims.Profile.LastName)
	assert.Equal(t, "https://t.me/i/userpic/320/alice.jpg", claims.Profile.PhotoURL)
}

func TestIssue_WithoutUserID(t *testing.T) {
	codec := token.NewCodec(testSecret, time.Hour)

	raw, err := codec.Issue(testProfile(), "")
	require.NoError(t, err)

	claims, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, claims.UserID)
	assert.Equal(t, "42", claims.Subject)
}

func TestParse_Expired(t *testing.T) {
	issuedAt := time.Unix(1735689600, 0)
	codec := token.NewCodec(testSecret, time.Hour).WithClock(func() time.Time { return issuedAt })

	raw, err := codec.Issue(testProfile(), "user-1")
	require.NoError(t, err)

	// Подпись валидна, но срок действия прошёл
	codec.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })

	_, err = codec.Parse(raw)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	issuer := token.NewCodec("other-secret", time.Hour)
	codec := token.NewCodec(testSecret, time.Hour)

	raw, err := issuer.Issue(testProfile(), "")
	require.NoError(t, err)

	_, err = codec.Parse(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	codec := token.NewCodec(testSecret, time.Hour)

	_, err := codec.Parse("not.a.token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestFromRequest_HeaderTakesPrecedence(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/auth/me", nil)
	require.NoError(t, err)

	req.AddCookie(&http.Cookie{Name: token.CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", token.FromRequest(req))

	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", token.FromRequest(req))
}

func TestFromRequest_Empty(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/auth/me", nil)
	require.NoError(t, err)

	assert.Empty(t, token.FromRequest(req))
}
