package rewards

// Tier is a loyalty level derived purely from cumulative points.
type Tier string

const (
	TierNormie Tier = "normie"
	TierDegen  Tier = "degen"
	TierAlpha  Tier = "alpha"
	TierMogul  Tier = "mogul"
	TierTitan  Tier = "titan"
)

// Point thresholds, ascending. Tiers never decrease because points
// never decrease.
const (
	degenThreshold = 2000
	alphaThreshold = 8000
	mogulThreshold = 20000
	titanThreshold = 50000
)

// Base cashback rate per tier, applied to the treasury fee.
var cashbackRates = map[Tier]float64{
	TierNormie: 0.05,
	TierDegen:  0.10,
	TierAlpha:  0.15,
	TierMogul:  0.20,
	TierTitan:  0.25,
}

func TierForPoints(points int64) Tier {
	switch {
	case points >= titanThreshold:
		return TierTitan
	case points >= mogulThreshold:
		return TierMogul
	case points >= alphaThreshold:
		return TierAlpha
	case points >= degenThreshold:
		return TierDegen
	default:
		return TierNormie
	}
}

func CashbackRate(t Tier) float64 {
	if r, ok := cashbackRates[t]; ok {
		return r
	}
	return cashbackRates[TierNormie]
}
