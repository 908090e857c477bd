package model

import "time"

// SwapReward is the write-once audit record of one reward-processing
// event. The unique index on TransactionHash is the idempotency point
// for the whole engine: the row is inserted before any ledger mutation,
// inside the same transaction.
type SwapReward struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	UserID          string    `gorm:"column:user_id;size:128;index;not null"`
	WalletAddress   string    `gorm:"column:wallet_address;size:64"`
	TransactionHash string    `gorm:"column:transaction_hash;size:80;uniqueIndex;not null"`
	SwapValueUSD    float64   `gorm:"column:swap_value_usd;not null"`
	SwapValueETH    float64   `gorm:"column:swap_value_eth;not null"`
	InputToken      string    `gorm:"column:input_token;size:64"`
	OutputToken     string    `gorm:"column:output_token;size:64"`
	InputAmount     string    `gorm:"column:input_amount;size:80"`
	OutputAmount    string    `gorm:"column:output_amount;size:80"`
	PlatformFee     float64   `gorm:"column:platform_fee;not null"`
	ProtocolFee     float64   `gorm:"column:protocol_fee;not null"`
	TreasuryFee     float64   `gorm:"column:treasury_fee;not null"`
	AffiliateFee    float64   `gorm:"column:affiliate_fee;not null"`
	CashbackAmount  float64   `gorm:"column:cashback_amount;not null"`
	CashbackPercent float64   `gorm:"column:cashback_percent;not null"`
	PointsEarned    int64     `gorm:"column:points_earned;not null"`
	ReferralReward  float64   `gorm:"column:referral_reward;not null"`
	ReferrerID      string    `gorm:"column:referrer_id;size:128"`
	OldTier         string    `gorm:"column:old_tier;size:16"`
	NewTier         string    `gorm:"column:new_tier;size:16"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (SwapReward) TableName() string {
	return "swap_rewards"
}
