package model

import "time"

// User is the account entity owned by the account service. The rewards
// engine only ever increments points and bumps last_active_at.
type User struct {
	ID            string     `gorm:"column:id;primaryKey;size:128"`
	Points        int64      `gorm:"column:points;not null;default:0"`
	ReferredBy    string     `gorm:"column:referred_by;size:32"`
	WalletAddress string     `gorm:"column:wallet_address;size:64;index"`
	LastActiveAt  *time.Time `gorm:"column:last_active_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
