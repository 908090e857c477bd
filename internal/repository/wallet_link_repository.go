package repository

import (
	"context"

	"github.com/cypherx/rewards-backend/internal/model"
	"gorm.io/gorm"
)

type WalletLinkRepository interface {
	FindActiveByAddress(ctx context.Context, address string) (*model.WalletLink, error)
}

type walletLinkRepository struct {
	db *gorm.DB
}

func NewWalletLinkRepository(db *gorm.DB) WalletLinkRepository {
	return &walletLinkRepository{db: db}
}

// FindActiveByAddress returns the newest active link for a lowercase
// address. The linking service keeps at most one active link per
// address.
func (r *walletLinkRepository) FindActiveByAddress(ctx context.Context, address string) (*model.WalletLink, error) {
	var link model.WalletLink
	if err := dbFor(ctx, r.db).
		Where("address = ? AND is_active = ?", address, true).
		Order("id DESC").
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}
