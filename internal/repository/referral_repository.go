package repository

import (
	"context"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type ReferralRepository interface {
	FindCodeOwner(ctx context.Context, code string) (string, error)
	CreateCode(ctx context.Context, c *model.ReferralCode) error
	CreateRecord(ctx context.Context, rec *model.ReferralRecord) error
	SumReferredVolume(ctx context.Context, referrerID string) (float64, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]model.ReferralRecord, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) FindCodeOwner(ctx context.Context, code string) (string, error) {
	var rc model.ReferralCode
	if err := dbFor(ctx, r.db).First(&rc, "code = ?", code).Error; err != nil {
		return "", err
	}
	return rc.UserID, nil
}

func (r *referralRepository) CreateCode(ctx context.Context, c *model.ReferralCode) error {
	return dbFor(ctx, r.db).Create(c).Error
}

func (r *referralRepository) CreateRecord(ctx context.Context, rec *model.ReferralRecord) error {
	return dbFor(ctx, r.db).Create(rec).Error
}

// SumReferredVolume totals the swap volume this user has referred. The
// result drives the referrer's own cashback volume bonus.
func (r *referralRepository) SumReferredVolume(ctx context.Context, referrerID string) (float64, error) {
	var total float64
	if err := dbFor(ctx, r.db).
		Model(&model.ReferralRecord{}).
		Where("referrer_id = ?", referrerID).
		Select("COALESCE(SUM(swap_value_usd), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]model.ReferralRecord, error) {
	var list []model.ReferralRecord
	if err := dbFor(ctx, r.db).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
