package repository

import (
	"context"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type RewardsLedgerRepository interface {
	Get(ctx context.Context, userID string) (*model.RewardsLedger, error)
	Create(ctx context.Context, l *model.RewardsLedger) error
	ApplySwap(ctx context.Context, userID string, cashback, volumeUSD float64, tier string, at time.Time) error
	CreditReferral(ctx context.Context, userID string, amount float64, at time.Time) error
	FindByReferralCode(ctx context.Context, code string) (*model.RewardsLedger, error)
}

type rewardsLedgerRepository struct {
	db *gorm.DB
}

func NewRewardsLedgerRepository(db *gorm.DB) RewardsLedgerRepository {
	return &rewardsLedgerRepository{db: db}
}

func (r *rewardsLedgerRepository) Get(ctx context.Context, userID string) (*model.RewardsLedger, error) {
	var l model.RewardsLedger
	if err := dbFor(ctx, r.db).First(&l, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *rewardsLedgerRepository) Create(ctx context.Context, l *model.RewardsLedger) error {
	return dbFor(ctx, r.db).Create(l).Error
}

// ApplySwap folds one swap into the cumulative counters. Increments are
// expressions evaluated by the database, never read-modify-write in
// process.
func (r *rewardsLedgerRepository) ApplySwap(ctx context.Context, userID string, cashback, volumeUSD float64, tier string, at time.Time) error {
	res := dbFor(ctx, r.db).
		Model(&model.RewardsLedger{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"eth_rewards":   gorm.Expr("eth_rewards + ?", cashback),
			"volume_traded": gorm.Expr("volume_traded + ?", volumeUSD),
			"transactions":  gorm.Expr("transactions + ?", 1),
			"tier":          tier,
			"last_updated":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *rewardsLedgerRepository) CreditReferral(ctx context.Context, userID string, amount float64, at time.Time) error {
	res := dbFor(ctx, r.db).
		Model(&model.RewardsLedger{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"eth_rewards":  gorm.Expr("eth_rewards + ?", amount),
			"last_updated": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByReferralCode is the legacy lookup for codes that predate the
// referral_codes index and exist only as a ledger field.
func (r *rewardsLedgerRepository) FindByReferralCode(ctx context.Context, code string) (*model.RewardsLedger, error) {
	var l model.RewardsLedger
	if err := dbFor(ctx, r.db).
		Where("referral_code = ?", code).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}
