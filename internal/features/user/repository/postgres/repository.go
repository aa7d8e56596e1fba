package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"exchange-marketplace-backend/internal/features/user/models"
	"exchange-marketplace-backend/internal/features/user/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

const userColumns = `id, email, username, full_name, avatar_url, telegram_id, ton_wallet, rating, settings_json, created_at, updated_at`

// Create создает нового пользователя
func (r *postgresRepository) Create(ctx context.Context, user *models.User) error {
	settings, err := marshalSettings(user.Settings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, email, username, full_name, avatar_url, telegram_id, ton_wallet, rating, settings_json)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.FullName, user.AvatarURL,
		user.TelegramID, user.TonWallet, user.Rating, settings)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, telegramID))
}

// Update обновляет пользователя
func (r *postgresRepository) Update(ctx context.Context, user *models.User) error {
	settings, err := marshalSettings(user.Settings)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET email = NULLIF($2, ''), username = NULLIF($3, ''), full_name = NULLIF($4, ''),
			avatar_url = NULLIF($5, ''), ton_wallet = NULLIF($6, ''), rating = $7,
			settings_json = $8, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.FullName, user.AvatarURL,
		user.TonWallet, user.Rating, settings)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (r *postgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var email, username, fullName, avatarURL, telegramID, tonWallet sql.NullString
	var settings []byte

	err := row.Scan(&user.ID, &email, &username, &fullName, &avatarURL,
		&telegramID, &tonWallet, &user.Rating, &settings,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Email = email.String
	user.Username = username.String
	user.FullName = fullName.String
	user.AvatarURL = avatarURL.String
	user.TelegramID = telegramID.String
	user.TonWallet = tonWallet.String

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &user.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	return &user, nil
}

func marshalSettings(settings map[string]interface{}) ([]byte, error) {
	if settings == nil {
		settings = map[string]interface{}{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}
