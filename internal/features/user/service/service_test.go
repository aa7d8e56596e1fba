package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-marketplace-backend/internal/features/user/models"
	"exchange-marketplace-backend/internal/features/user/repository"
	"exchange-marketplace-backend/internal/features/user/service"
)

type fakeUserRepo struct {
	byID      map[string]*models.User
	byTgID    map[string]*models.User
	createErr error
	creates   int
	// missFirstLookup заставляет первый GetByTelegramID промахнуться —
	// имитация гонки параллельных логинов
	missFirstLookup bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[string]*models.User),
		byTgID: make(map[string]*models.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[user.ID] = user
	r.byTgID[user.TelegramID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := r.byID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID string) (*models.User, error) {
	if r.missFirstLookup {
		r.missFirstLookup = false
		return nil, repository.ErrUserNotFound
	}
	if user, ok := r.byTgID[telegramID]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.byID[user.ID] = user
	r.byTgID[user.TelegramID] = user
	return nil
}

func TestGetOrCreateByTelegram_CreatesOnFirstLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := service.NewUserService(repo)

	user, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice", "Alice", "https://t.me/i/userpic/a.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "42", user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.FullName)
	assert.Equal(t, 1, repo.creates)
}

func TestGetOrCreateByTelegram_ReturnsExisting(t *testing.T) {
	repo := newFakeUserRepo()
	svc := service.NewUserService(repo)

	first, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice", "Alice", "")
	require.NoError(t, err)

	second, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice-renamed", "Alice R", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// Профиль при повторном входе не перезаписывается
	assert.Equal(t, "alice", second.Username)
	assert.Equal(t, 1, repo.creates)
}

func TestGetOrCreateByTelegram_CreateRace(t *testing.T) {
	repo := newFakeUserRepo()
	svc := service.NewUserService(repo)

	// Уникальный индекс сработал: Create падает, но запись уже существует
	winner := &models.User{ID: "winner", TelegramID: "42", Username: "alice"}
	repo.byTgID["42"] = winner
	repo.byID["winner"] = winner
	repo.createErr = errors.New("duplicate key value violates unique constraint")
	repo.missFirstLookup = true

	user, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice", "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, "winner", user.ID)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := service.NewUserService(newFakeUserRepo())

	_, err := svc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := service.NewUserService(repo)

	user, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice", "Alice", "")
	require.NoError(t, err)

	fullName := "Alice Liddell"
	rating := 4.8
	updated, err := svc.UpdateProfile(context.Background(), user.ID, &models.UpdateProfileRequest{
		FullName: &fullName,
		Rating:   &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.FullName)
	assert.Equal(t, 4.8, updated.Rating)
	// Незатронутые поля сохраняются
	assert.Equal(t, "alice", updated.Username)
}

func TestUpdateProfile_EmptyPatch(t *testing.T) {
	repo := newFakeUserRepo()
	svc := service.NewUserService(repo)

	user, err := svc.GetOrCreateByTelegram(context.Background(), 42, "alice", "Alice", "")
	require.NoError(t, err)
	before := user.UpdatedAt

	updated, err := svc.UpdateProfile(context.Background(), user.ID, &models.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, before, updated.UpdatedAt)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	svc := service.NewUserService(newFakeUserRepo())

	name := "nobody"
	_, err := svc.UpdateProfile(context.Background(), "missing", &models.UpdateProfileRequest{FullName: &name})
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
