package repository

import (
	"context"
	"time"

	"librestock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository reads the user and session rows owned by the external auth
// service. Nothing here mutates them.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, search string, offset, limit int) ([]model.User, int64, error)
	FindSessionByToken(ctx context.Context, token string, now time.Time) (*model.Session, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, search string, offset, limit int) ([]model.User, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.User{})
	if search != "" {
		pattern := "%" + search + "%"
		db = db.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	if err := db.Order("created_at asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// FindSessionByToken returns the live session for token, or
// gorm.ErrRecordNotFound if the token is unknown or expired.
func (r *userRepository) FindSessionByToken(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := GetDB(ctx, r.db).
		Where("token = ? AND expires_at > ?", token, now).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}
