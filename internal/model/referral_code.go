package model

import "time"

// ReferralCode maps a referral-code string to its owning user. Created
// once alongside the owner's ledger, immutable afterwards. The primary
// key doubles as the uniqueness guarantee for generated codes.
type ReferralCode struct {
	Code      string    `gorm:"column:code;primaryKey;size:32"`
	UserID    string    `gorm:"column:user_id;size:128;index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}
