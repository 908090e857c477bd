package model

import "time"

// RewardsLedger holds a user's cumulative reward state. EthRewards,
// VolumeTraded and Transactions only ever increase; Tier is derived from
// points on every update.
type RewardsLedger struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:128"`
	EthRewards   float64   `gorm:"column:eth_rewards;not null;default:0"`
	ReferralCode string    `gorm:"column:referral_code;size:32;uniqueIndex;not null"`
	Referrals    int64     `gorm:"column:referrals;not null;default:0"`
	ReferralRate float64   `gorm:"column:referral_rate;not null;default:30"`
	VolumeTraded float64   `gorm:"column:volume_traded;not null;default:0"`
	Transactions int64     `gorm:"column:transactions;not null;default:0"`
	Tier         string    `gorm:"column:tier;size:16;not null"`
	LastUpdated  time.Time `gorm:"column:last_updated"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (RewardsLedger) TableName() string {
	return "rewards_ledgers"
}
