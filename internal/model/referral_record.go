package model

import "time"

const ReferralStatusActive = "active"

// ReferralRecord is an append-only audit entry for one referral credit.
type ReferralRecord struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	ReferrerID      string    `gorm:"column:referrer_id;size:128;index;not null"`
	RefereeID       string    `gorm:"column:referee_id;size:128;index;not null"`
	RefereeWallet   string    `gorm:"column:referee_wallet;size:64"`
	ReferralCode    string    `gorm:"column:referral_code;size:32"`
	SwapValueUSD    float64   `gorm:"column:swap_value_usd;not null"`
	SwapValueETH    float64   `gorm:"column:swap_value_eth;not null"`
	PlatformFee     float64   `gorm:"column:platform_fee;not null"`
	TreasuryFee     float64   `gorm:"column:treasury_fee;not null"`
	ReferralReward  float64   `gorm:"column:referral_reward;not null"`
	TransactionHash string    `gorm:"column:transaction_hash;size:80;index"`
	Status          string    `gorm:"column:status;size:16;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (ReferralRecord) TableName() string {
	return "referral_records"
}
