package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"exchange-marketplace-backend/internal/features/user/models"
	"exchange-marketplace-backend/internal/features/user/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	// GetOrCreateByTelegram резолвит Telegram-профиль в локальную запись
	// пользователя, создавая её при первом входе.
	GetOrCreateByTelegram(ctx context.Context, telegramID int64, username, fullName, avatarURL string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, patch *models.UpdateProfileRequest) (*models.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) GetOrCreateByTelegram(ctx context.Context, telegramID int64, username, fullName, avatarURL string) (*models.User, error) {
	tgID := strconv.FormatInt(telegramID, 10)

	user, err := s.repo.GetByTelegramID(ctx, tgID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	newUser := &models.User{
		ID:         uuid.New().String(),
		Username:   username,
		FullName:   fullName,
		AvatarURL:  avatarURL,
		TelegramID: tgID,
		Rating:     0,
		Settings:   map[string]interface{}{},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		// Параллельный логин мог создать запись первым
		if existing, getErr := s.repo.GetByTelegramID(ctx, tgID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	return newUser, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, patch *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.FullName != nil {
		user.FullName = *patch.FullName
		changed = true
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
		changed = true
	}
	if patch.Rating != nil {
		user.Rating = *patch.Rating
		changed = true
	}
	if patch.Settings != nil {
		user.Settings = *patch.Settings
		changed = true
	}

	if !changed {
		return user, nil
	}

	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
