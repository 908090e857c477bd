package rewards

import "math"

const (
	platformFeeRate       = 0.0075 // 0.75% of swap USD value
	protocolFeeRate       = 0.0015 // 0.15% retained by the swap aggregator
	fallbackAffiliateRate = 0.0015 // used when no bps override is configured
	referralShare         = 0.30   // referrer's cut of the treasury fee
	pointsPerUSD          = 0.1
)

// FeeBreakdown is the fee split for one swap. TreasuryFee is always
// PlatformFee - ProtocolFee; AffiliateFee is informational only and is
// not deducted from the treasury pool.
type FeeBreakdown struct {
	PlatformFee  float64
	ProtocolFee  float64
	TreasuryFee  float64
	AffiliateFee float64
}

// ComputeFees splits a swap's USD value. affiliateBps overrides the
// affiliate rate when positive.
func ComputeFees(valueUSD float64, affiliateBps int) FeeBreakdown {
	platform := valueUSD * platformFeeRate
	protocol := valueUSD * protocolFeeRate
	affiliate := valueUSD * fallbackAffiliateRate
	if affiliateBps > 0 {
		affiliate = valueUSD * float64(affiliateBps) / 10000
	}
	return FeeBreakdown{
		PlatformFee:  platform,
		ProtocolFee:  protocol,
		TreasuryFee:  platform - protocol,
		AffiliateFee: affiliate,
	}
}

// VolumeBonus is the additive percentage-point boost earned by a user's
// own referred volume. Step function, not interpolated.
func VolumeBonus(referredVolumeUSD float64) float64 {
	switch {
	case referredVolumeUSD >= 100000:
		return 20
	case referredVolumeUSD >= 25000:
		return 15
	case referredVolumeUSD >= 5000:
		return 10
	case referredVolumeUSD >= 1000:
		return 5
	default:
		return 0
	}
}

// Cashback is the swapper's reward: a tier- and referred-volume-driven
// share of the treasury fee.
func Cashback(treasuryFee float64, tier Tier, referredVolumeUSD float64) float64 {
	return treasuryFee * (CashbackRate(tier) + VolumeBonus(referredVolumeUSD)/100)
}

// Points awards 0.1 loyalty point per dollar, truncated toward zero.
func Points(valueUSD float64) int64 {
	return int64(math.Floor(valueUSD * pointsPerUSD))
}

// ReferralReward is the referrer's flat 30% of the treasury fee,
// independent of either party's tier.
func ReferralReward(treasuryFee float64) float64 {
	return treasuryFee * referralShare
}
