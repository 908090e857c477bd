package repository

import (
	"context"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type FeeTransactionRepository interface {
	Create(ctx context.Context, ft *model.FeeTransaction) error
}

type feeTransactionRepository struct {
	db *gorm.DB
}

func NewFeeTransactionRepository(db *gorm.DB) FeeTransactionRepository {
	return &feeTransactionRepository{db: db}
}

func (r *feeTransactionRepository) Create(ctx context.Context, ft *model.FeeTransaction) error {
	return dbFor(ctx, r.db).Create(ft).Error
}
