package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
)

var ErrNotFound = errors.New("record not found")

// FindUserByEmail returns the user including the password hash. Read paths
// that return users to clients must not use this directly.
func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByTel(ctx context.Context, tel string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("tel = ?", tel).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

// UpdateUserRoles replaces the user's role set.
func (r *GormRepo) UpdateUserRoles(ctx context.Context, id uint, roles []string) (*models.User, error) {
	user, err := r.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	if err := r.DB.WithContext(ctx).Model(user).Update("roles", roles).Error; err != nil {
		return nil, err
	}
	return user, nil
}
