package repository

import (
	"context"

	"tenco_blog/internal/model"

	"gorm.io/gorm"
)

// 用户仓库接口：插入、按用户名/ID查找、按ID更新
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, userID uint64) (*model.User, error)
	UpdateByID(ctx context.Context, userID uint64, hashedPassword, email string) error

	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// 用户插入表，用户名重复返回 ErrDuplicateEntry
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var result model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&result).Error
	if err != nil {
		return nil, translateLookup(err, ErrUserNotFound)
	}
	return &result, nil
}

func (r *userRepository) FindByID(ctx context.Context, userID uint64) (*model.User, error) {
	var result model.User
	if err := r.db.WithContext(ctx).First(&result, userID).Error; err != nil {
		return nil, translateLookup(err, ErrUserNotFound)
	}
	return &result, nil
}

// UpdateByID 只改密码和邮箱：UPDATE users SET password=?, email=?, updated_at=? WHERE id = ?
// 值没变时MySQL的影响行数可能是0，所以存在性由调用方先查
func (r *userRepository) UpdateByID(ctx context.Context, userID uint64, hashedPassword, email string) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password": hashedPassword,
		"email":    email,
	}).Error
	return translateError(err)
}
