package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TPP-insulA/insula-bot/internal/database"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

// UserRepository handles user data operations and persists account links
type UserRepository struct {
	db *gorm.DB
}

var _ session.Store = (*UserRepository)(nil)

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateUser gets an existing user or creates a new one
func (r *UserRepository) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	var user database.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = database.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveSession links a token to the user, creating the user row if needed
func (r *UserRepository) SaveSession(ctx context.Context, s session.Session) error {
	linkedAt := s.LinkedAt
	user := database.User{
		TelegramID: s.TelegramID,
		APIToken:   s.Token,
		LinkedAt:   &linkedAt,
	}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		user.TokenExpiresAt = &exp
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_token", "token_expires_at", "linked_at", "updated_at"}),
	}).Create(&user).Error
}

// LoadSession returns nil when the user is unknown or not linked
func (r *UserRepository) LoadSession(ctx context.Context, telegramID int64) (*session.Session, error) {
	user, err := r.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.APIToken == "" {
		return nil, nil
	}

	s := &session.Session{TelegramID: user.TelegramID, Token: user.APIToken}
	if user.TokenExpiresAt != nil {
		s.ExpiresAt = *user.TokenExpiresAt
	}
	if user.LinkedAt != nil {
		s.LinkedAt = *user.LinkedAt
	}
	return s, nil
}

// DeleteSession unlinks the token but keeps the user row
func (r *UserRepository) DeleteSession(ctx context.Context, telegramID int64) error {
	return r.db.WithContext(ctx).Model(&database.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{
			"api_token":        "",
			"token_expires_at": gorm.Expr("NULL"),
			"linked_at":        gorm.Expr("NULL"),
			"updated_at":       time.Now(),
		}).Error
}
