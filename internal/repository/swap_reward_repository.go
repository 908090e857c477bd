package repository

import (
	"context"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type SwapRewardRepository interface {
	ExistsByTxHash(ctx context.Context, hash string) (bool, error)
	Create(ctx context.Context, rec *model.SwapReward) error
	ListMissingFeeAudit(ctx context.Context, limit int) ([]model.SwapReward, error)
}

type swapRewardRepository struct {
	db *gorm.DB
}

func NewSwapRewardRepository(db *gorm.DB) SwapRewardRepository {
	return &swapRewardRepository{db: db}
}

func (r *swapRewardRepository) ExistsByTxHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := dbFor(ctx, r.db).
		Model(&model.SwapReward{}).
		Where("transaction_hash = ?", hash).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the write-once audit row. A second insert for the same
// transaction hash fails with gorm.ErrDuplicatedKey, which callers
// treat as the already-processed signal.
func (r *swapRewardRepository) Create(ctx context.Context, rec *model.SwapReward) error {
	return dbFor(ctx, r.db).Create(rec).Error
}

// ListMissingFeeAudit returns swap rewards that have no matching
// fee_transactions row, for the reconciliation worker to repair.
func (r *swapRewardRepository) ListMissingFeeAudit(ctx context.Context, limit int) ([]model.SwapReward, error) {
	var list []model.SwapReward
	if err := dbFor(ctx, r.db).
		Joins("LEFT JOIN fee_transactions ft ON ft.transaction_hash = swap_rewards.transaction_hash").
		Where("ft.id IS NULL").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
