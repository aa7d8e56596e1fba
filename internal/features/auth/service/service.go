package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"exchange-marketplace-backend/internal/common/logger"
	"exchange-marketplace-backend/internal/features/auth/models"
	"exchange-marketplace-backend/internal/features/auth/signature"
	"exchange-marketplace-backend/internal/features/auth/store"
	"exchange-marketplace-backend/internal/features/auth/token"
	userservice "exchange-marketplace-backend/internal/features/user/service"
)

// deeplinkPrefix — префикс start-параметра нового потока. Бот парсит
// auth_<state> и возвращает state в колбэке как есть.
const deeplinkPrefix = "auth_"

var (
	ErrEmptyState      = errors.New("state is required")
	ErrUnauthorizedBot = errors.New("unauthorized bot")
	ErrInvalidState    = errors.New("invalid state")
	ErrMissingIdentity = errors.New("missing telegram id")
	// ErrStateNotReady — единый ответ на неизвестный, истёкший или ещё
	// не завершённый state при обмене.
	ErrStateNotReady = store.ErrNotReady
)

type AuthService interface {
	// Initiate регистрирует state и возвращает deep link в бота
	// (start=auth_<state>). Шаг 1-2 handshake.
	Initiate(state string) (string, error)
	// Deeplink возвращает ссылку t.me для legacy-потока через LoginUrl.
	Deeplink(state string) string
	// CompleteFromBot принимает профиль от бота и прикрепляет выписанный
	// токен к state. Шаг 3-4. Переход INITIATED → COMPLETED.
	CompleteFromBot(ctx context.Context, presentedToken string, req *models.BotCallbackRequest) error
	// Exchange выдаёт результат handshake ровно один раз. Шаг 6.
	// Переход COMPLETED → CONSUMED.
	Exchange(state string) (*models.AuthResult, error)
	// DirectLogin — legacy-путь: виджет Telegram доставляет подписанные
	// поля прямо в браузерный редирект, без участия бота.
	DirectLogin(fields map[string]string) (*models.AuthResult, error)
	// MiniAppLogin валидирует init_data мини-аппы и выписывает такой же
	// сессионный токен.
	MiniAppLogin(ctx context.Context, initData string) (*models.AuthResult, error)
}

type authService struct {
	states      *store.Store
	verifier    *signature.Verifier
	codec       *token.Codec
	users       userservice.UserService
	botToken    string
	botUsername string
}

func NewAuthService(states *store.Store, verifier *signature.Verifier, codec *token.Codec,
	users userservice.UserService, botToken, botUsername string) AuthService {
	return &authService{
		states:      states,
		verifier:    verifier,
		codec:       codec,
		users:       users,
		botToken:    botToken,
		botUsername: botUsername,
	}
}

func (s *authService) Initiate(state string) (string, error) {
	if state == "" {
		return "", ErrEmptyState
	}

	s.states.Create(state)
	return fmt.Sprintf("https://t.me/%s?start=%s%s", s.botUsername, deeplinkPrefix, state), nil
}

func (s *authService) Deeplink(state string) string {
	startParam := state
	if startParam == "" {
		startParam = "auth"
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, startParam)
}

func (s *authService) CompleteFromBot(ctx context.Context, presentedToken string, req *models.BotCallbackRequest) error {
	// Простейшая аутентификация запроса от бота: общий секрет
	if presentedToken != s.botToken {
		return ErrUnauthorizedBot
	}

	if req.State == "" || !s.states.Open(req.State) {
		return ErrInvalidState
	}

	if req.ID == 0 {
		return ErrMissingIdentity
	}

	profile := req.Profile()

	user, err := s.users.GetOrCreateByTelegram(ctx, profile.ID, profile.Username, profile.FirstName, profile.PhotoURL)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	sessionToken, err := s.codec.Issue(&profile, user.ID)
	if err != nil {
		return err
	}

	s.states.AttachResult(req.State, sessionToken, profile)

	logger.Info().
		Int64("telegram_id", profile.ID).
		Str("user_id", user.ID).
		Msg("Bot handshake completed")

	return nil
}

func (s *authService) Exchange(state string) (*models.AuthResult, error) {
	return s.states.Consume(state)
}

func (s *authService) DirectLogin(fields map[string]string) (*models.AuthResult, error) {
	profile, err := s.verifier.Verify(fields)
	if err != nil {
		return nil, err
	}

	// Legacy-путь не резолвит локального пользователя: токен несёт только
	// Telegram-профиль, пользователь создаётся при первом обращении к API.
	sessionToken, err := s.codec.Issue(profile, "")
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{Token: sessionToken, Profile: *profile}, nil
}

func (s *authService) MiniAppLogin(ctx context.Context, rawInitData string) (*models.AuthResult, error) {
	rawInitData = strings.TrimSpace(rawInitData)
	if rawInitData == "" {
		return nil, signature.ErrMissingFields
	}

	if err := initdata.Validate(rawInitData, s.botToken, time.Hour); err != nil {
		return nil, signature.ErrInvalidSignature
	}

	data, err := initdata.Parse(rawInitData)
	if err != nil {
		return nil, signature.ErrMissingFields
	}
	if data.User.ID == 0 {
		return nil, ErrMissingIdentity
	}

	profile := models.TelegramProfile{
		ID:        data.User.ID,
		Username:  data.User.Username,
		FirstName: data.User.FirstName,
		LastName:  data.User.LastName,
		PhotoURL:  data.User.PhotoURL,
	}

	user, err := s.users.GetOrCreateByTelegram(ctx, profile.ID, profile.Username, profile.FirstName, profile.PhotoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	sessionToken, err := s.codec.Issue(&profile, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{Token: sessionToken, Profile: profile}, nil
}
