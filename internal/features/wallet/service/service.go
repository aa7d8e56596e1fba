package service

import (
	"context"
	"errors"

	"github.com/xssnick/tonutils-go/address"

	"exchange-marketplace-backend/internal/common/logger"
	usermodels "exchange-marketplace-backend/internal/features/user/models"
	userrepo "exchange-marketplace-backend/internal/features/user/repository"
)

var (
	ErrInvalidAddress = errors.New("invalid ton address")
	ErrUserNotFound   = errors.New("user not found")
)

// WalletService привязывает TON-кошелёк продавца к его профилю.
// Адрес валидируется и нормализуется перед сохранением.
type WalletService interface {
	Attach(ctx context.Context, userID, rawAddr string) (*usermodels.User, error)
	Detach(ctx context.Context, userID string) (*usermodels.User, error)
}

type walletService struct {
	users userrepo.UserRepository
}

func NewWalletService(users userrepo.UserRepository) WalletService {
	return &walletService{users: users}
}

func (s *walletService) Attach(ctx context.Context, userID, rawAddr string) (*usermodels.User, error) {
	addr, err := address.ParseAddr(rawAddr)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	return s.setWallet(ctx, userID, addr.String())
}

func (s *walletService) Detach(ctx context.Context, userID string) (*usermodels.User, error) {
	return s.setWallet(ctx, userID, "")
}

func (s *walletService) setWallet(ctx context.Context, userID, wallet string) (*usermodels.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.TonWallet = wallet
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", userID).Bool("attached", wallet != "").Msg("TON wallet updated")

	return user, nil
}
