package model

import "time"

// FeeTransaction duplicates the fee slice of a SwapReward for
// treasury-side accounting. Append-only.
type FeeTransaction struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	UserID          string    `gorm:"column:user_id;size:128;index;not null"`
	WalletAddress   string    `gorm:"column:wallet_address;size:64"`
	TransactionHash string    `gorm:"column:transaction_hash;size:80;index;not null"`
	SwapValueUSD    float64   `gorm:"column:swap_value_usd;not null"`
	PlatformFee     float64   `gorm:"column:platform_fee;not null"`
	ProtocolFee     float64   `gorm:"column:protocol_fee;not null"`
	TreasuryFee     float64   `gorm:"column:treasury_fee;not null"`
	AffiliateFee    float64   `gorm:"column:affiliate_fee;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (FeeTransaction) TableName() string {
	return "fee_transactions"
}
