package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-marketplace-backend/internal/features/auth/models"
	"exchange-marketplace-backend/internal/features/auth/service"
	"exchange-marketplace-backend/internal/features/auth/signature"
	"exchange-marketplace-backend/internal/features/auth/store"
	"exchange-marketplace-backend/internal/features/auth/token"
	usermodels "exchange-marketplace-backend/internal/features/user/models"
)

const (
	testBotToken    = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"
	testBotUsername = "examplebot"
	testSecret      = "test-session-secret"
)

// fakeUserRepo — in-memory замена UserService для резолва пользователей
type fakeUserResolver struct {
	mu    sync.Mutex
	users map[string]*usermodels.User
	calls int
}

func newFakeUserResolver() *fakeUserResolver {
	return &fakeUserResolver{users: make(map[string]*usermodels.User)}
}

func (f *fakeUserResolver) GetOrCreateByTelegram(_ context.Context, telegramID int64, username, fullName, avatarURL string) (*usermodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	tgID := strconv.FormatInt(telegramID, 10)
	if user, ok := f.users[tgID]; ok {
		return user, nil
	}
	user := &usermodels.User{
		ID:         fmt.Sprintf("user-%s", tgID),
		Username:   username,
		FullName:   fullName,
		AvatarURL:  avatarURL,
		TelegramID: tgID,
	}
	f.users[tgID] = user
	return user, nil
}

func (f *fakeUserResolver) GetByID(_ context.Context, id string) (*usermodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserResolver) UpdateProfile(_ context.Context, id string, _ *usermodels.UpdateProfileRequest) (*usermodels.User, error) {
	return f.GetByID(context.Background(), id)
}

type fixture struct {
	service service.AuthService
	states  *store.Store
	codec   *token.Codec
	users   *fakeUserResolver
	clock   *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Unix(1735689600, 0)}
	states := store.New(10 * time.Minute).WithClock(clock.Now)
	verifier := signature.NewVerifier(testBotToken, 5*time.Minute).WithClock(clock.Now)
	codec := token.NewCodec(testSecret, 30*24*time.Hour).WithClock(clock.Now)
	users := newFakeUserResolver()

	svc := service.NewAuthService(states, verifier, codec, users, testBotToken, testBotUsername)

	return &fixture{service: svc, states: states, codec: codec, users: users, clock: clock}
}

func botRequest(state string) *models.BotCallbackRequest {
	return &models.BotCallbackRequest{
		State:     state,
		ID:        42,
		Username:  "alice",
		FirstName: "Alice",
	}
}

func TestInitiate(t *testing.T) {
	f := setup(t)

	deeplink, err := f.service.Initiate("abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/examplebot?start=auth_abc123", deeplink)
	assert.True(t, f.states.Open("abc123"))
}

func TestInitiate_EmptyState(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("")
	require.ErrorIs(t, err, service.ErrEmptyState)
}

func TestDeeplink(t *testing.T) {
	f := setup(t)

	assert.Equal(t, "https://t.me/examplebot?start=abc123", f.service.Deeplink("abc123"))
	assert.Equal(t, "https://t.me/examplebot?start=auth", f.service.Deeplink(""))
}

func TestExchange_BeforeCompletion(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)

	_, err = f.service.Exchange("abc123")
	require.ErrorIs(t, err, service.ErrStateNotReady)
}

// Полный сценарий handshake: initiate в T=0, колбэк бота в T=5,
// обмен в T=10, повторный обмен в T=11.
func TestHandshake_FullFlow(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Second)
	err = f.service.CompleteFromBot(context.Background(), testBotToken, botRequest("abc123"))
	require.NoError(t, err)

	f.clock.Advance(5 * time.Second)
	result, err := f.service.Exchange("abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Profile.ID)
	assert.Equal(t, "alice", result.Profile.Username)

	// Токен подписан и несёт тот же профиль и uid локального пользователя
	claims, err := f.codec.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "alice", claims.Profile.Username)

	// Повторный обмен — одноразовое потребление
	f.clock.Advance(time.Second)
	_, err = f.service.Exchange("abc123")
	require.ErrorIs(t, err, service.ErrStateNotReady)
}

func TestExchange_AfterTTL(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)

	f.clock.Advance(700 * time.Second)

	_, err = f.service.Exchange("abc123")
	require.ErrorIs(t, err, service.ErrStateNotReady)
}

func TestCompleteFromBot_WrongSharedSecret(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)

	err = f.service.CompleteFromBot(context.Background(), "wrong-secret", botRequest("abc123"))
	require.ErrorIs(t, err, service.ErrUnauthorizedBot)

	// Запись не тронута: правильный колбэк всё ещё проходит
	assert.True(t, f.states.Open("abc123"))
	assert.Equal(t, 0, f.users.calls)

	err = f.service.CompleteFromBot(context.Background(), testBotToken, botRequest("abc123"))
	require.NoError(t, err)
}

func TestCompleteFromBot_UnknownState(t *testing.T) {
	f := setup(t)

	err := f.service.CompleteFromBot(context.Background(), testBotToken, botRequest("never-initiated"))
	require.ErrorIs(t, err, service.ErrInvalidState)
}

func TestCompleteFromBot_MissingIdentity(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)

	req := botRequest("abc123")
	req.ID = 0
	err = f.service.CompleteFromBot(context.Background(), testBotToken, req)
	require.ErrorIs(t, err, service.ErrMissingIdentity)
}

func TestCompleteFromBot_AfterConsume(t *testing.T) {
	f := setup(t)

	_, err := f.service.Initiate("abc123")
	require.NoError(t, err)
	require.NoError(t, f.service.CompleteFromBot(context.Background(), testBotToken, botRequest("abc123")))

	_, err = f.service.Exchange("abc123")
	require.NoError(t, err)

	// Ретрай бота после потребления не воскрешает запись
	err = f.service.CompleteFromBot(context.Background(), testBotToken, botRequest("abc123"))
	require.ErrorIs(t, err, service.ErrInvalidState)

	_, err = f.service.Exchange("abc123")
	require.ErrorIs(t, err, service.ErrStateNotReady)
}

// signWidgetFields подписывает поля так, как это делает Telegram Login Widget.
func signWidgetFields(fields map[string]string, botToken string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	fields["hash"] = hex.EncodeToString(mac.Sum(nil))
}

func TestDirectLogin(t *testing.T) {
	f := setup(t)

	fields := map[string]string{
		"id":         "7",
		"first_name": "Bob",
		"auth_date":  strconv.FormatInt(f.clock.Now().Unix(), 10),
	}
	signWidgetFields(fields, testBotToken)

	result, err := f.service.DirectLogin(fields)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Profile.ID)
	assert.Equal(t, "Bob", result.Profile.FirstName)

	claims, err := f.codec.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	// Legacy-путь не резолвит локального пользователя
	assert.Empty(t, claims.UserID)
	assert.Equal(t, 0, f.users.calls)
}

func TestDirectLogin_BadSignature(t *testing.T) {
	f := setup(t)

	fields := map[string]string{
		"id":        "7",
		"auth_date": strconv.FormatInt(f.clock.Now().Unix(), 10),
	}
	signWidgetFields(fields, "another-bot-token")

	_, err := f.service.DirectLogin(fields)
	require.ErrorIs(t, err, signature.ErrInvalidSignature)
}

func TestMiniAppLogin_EmptyInitData(t *testing.T) {
	f := setup(t)

	_, err := f.service.MiniAppLogin(context.Background(), "  ")
	require.ErrorIs(t, err, signature.ErrMissingFields)
}

func TestMiniAppLogin_GarbageInitData(t *testing.T) {
	f := setup(t)

	_, err := f.service.MiniAppLogin(context.Background(), "hash=deadbeef&auth_date=0")
	require.ErrorIs(t, err, signature.ErrInvalidSignature)
}
