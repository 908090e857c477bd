package model

import "time"

// WalletLink maps a lowercase wallet address to a user. Written by the
// wallet-linking service; read-only here. At most one active link per
// address is expected.
type WalletLink struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Address   string    `gorm:"column:address;size:64;index;not null"`
	UserID    string    `gorm:"column:user_id;size:128;index;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:false"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (WalletLink) TableName() string {
	return "wallet_links"
}
