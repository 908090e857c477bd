package repository

import (
	"context"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByWallet(ctx context.Context, address string) (*model.User, error)
	AddPoints(ctx context.Context, id string, points int64, activeAt time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := dbFor(ctx, r.db).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByWallet(ctx context.Context, address string) (*model.User, error) {
	var u model.User
	if err := dbFor(ctx, r.db).
		Where("wallet_address = ?", address).
		Order("id").
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) AddPoints(ctx context.Context, id string, points int64, activeAt time.Time) error {
	res := dbFor(ctx, r.db).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"points":         gorm.Expr("points + ?", points),
			"last_active_at": activeAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
