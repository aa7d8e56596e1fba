package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usermodels "exchange-marketplace-backend/internal/features/user/models"
	userrepo "exchange-marketplace-backend/internal/features/user/repository"
	"exchange-marketplace-backend/internal/features/wallet/service"
)

// Валидный user-friendly адрес (TON Foundation)
const validAddr = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"

type fakeUserRepo struct {
	users map[string]*usermodels.User
}

func newFakeUserRepo(users ...*usermodels.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*usermodels.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *usermodels.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*usermodels.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID string) (*usermodels.User, error) {
	for _, user := range r.users {
		if user.TelegramID == telegramID {
			return user, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *usermodels.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return userrepo.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func TestAttach(t *testing.T) {
	repo := newFakeUserRepo(&usermodels.User{ID: "user-1"})
	svc := service.NewWalletService(repo)

	user, err := svc.Attach(context.Background(), "user-1", validAddr)
	require.NoError(t, err)
	assert.NotEmpty(t, user.TonWallet)

	stored, err := repo.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, user.TonWallet, stored.TonWallet)
}

func TestAttach_NormalizesAddress(t *testing.T) {
	repo := newFakeUserRepo(&usermodels.User{ID: "user-1"})
	svc := service.NewWalletService(repo)

	first, err := svc.Attach(context.Background(), "user-1", validAddr)
	require.NoError(t, err)

	// Повторная привязка канонической формы даёт тот же результат
	second, err := svc.Attach(context.Background(), "user-1", first.TonWallet)
	require.NoError(t, err)
	assert.Equal(t, first.TonWallet, second.TonWallet)
}

func TestAttach_InvalidAddress(t *testing.T) {
	repo := newFakeUserRepo(&usermodels.User{ID: "user-1"})
	svc := service.NewWalletService(repo)

	for _, raw := range []string{"", "not-an-address", "EQtooshort"} {
		_, err := svc.Attach(context.Background(), "user-1", raw)
		require.ErrorIs(t, err, service.ErrInvalidAddress, "address %q", raw)
	}
}

func TestAttach_UserNotFound(t *testing.T) {
	svc := service.NewWalletService(newFakeUserRepo())

	_, err := svc.Attach(context.Background(), "missing", validAddr)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestDetach(t *testing.T) {
	repo := newFakeUserRepo(&usermodels.User{ID: "user-1", TonWallet: "EQsomething"})
	svc := service.NewWalletService(repo)

	user, err := svc.Detach(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, user.TonWallet)
}
