package ratelimit

import "fmt"

type Tier int

const (
	TierFree Tier = iota
	TierBasic
	TierPro
	TierEnterprise
)

func ParseTier(value string) (Tier, error) {
	switch value {
	case "free":
		return TierFree, nil
	case "basic":
		return TierBasic, nil
	case "pro":
		return TierPro, nil
	case "enterprise":
		return TierEnterprise, nil
	}

	return -1, fmt.Errorf("unknown tier: [%v]", value)
}

func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierBasic:
		return "basic"
	case TierPro:
		return "pro"
	case TierEnterprise:
		return "enterprise"
	default:
		panic("unknown tier")
	}
}

// TierLimits are the fixed ceilings of one subscription tier. A value
// of -1 denotes unlimited usage.
type TierLimits struct {
	BacktestsPerDay      int
	ConcurrentStrategies int
	OrdersPerMinute      int
	RequestsPerMinute    int
}

func LimitsForTier(tier Tier) *TierLimits {
	switch tier {
	case TierBasic:
		return &TierLimits{
			BacktestsPerDay:      25,
			ConcurrentStrategies: 5,
			OrdersPerMinute:      30,
			RequestsPerMinute:    120,
		}
	case TierPro:
		return &TierLimits{
			BacktestsPerDay:      100,
			ConcurrentStrategies: 20,
			OrdersPerMinute:      120,
			RequestsPerMinute:    600,
		}
	case TierEnterprise:
		return &TierLimits{
			BacktestsPerDay:      -1,
			ConcurrentStrategies: -1,
			OrdersPerMinute:      -1,
			RequestsPerMinute:    -1,
		}
	default:
		return &TierLimits{
			BacktestsPerDay:      5,
			ConcurrentStrategies: 1,
			OrdersPerMinute:      10,
			RequestsPerMinute:    60,
		}
	}
}
