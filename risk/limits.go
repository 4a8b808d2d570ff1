package risk

// Limits are the per-user risk thresholds evaluated on every proposed
// trade. Fractional fields are expressed relative to equity, e.g.
// MaxPositionSize 0.1 means one position may bind at most 10% of the
// current equity.
type Limits struct {
	MaxPositionSize    float64
	MaxDailyLoss       float64
	MaxDrawdown        float64
	MaxOpenPositions   int
	MinRiskRewardRatio float64
}

func DefaultLimits() *Limits {
	return &Limits{
		MaxPositionSize:    0.1,
		MaxDailyLoss:       0.05,
		MaxDrawdown:        0.2,
		MaxOpenPositions:   5,
		MinRiskRewardRatio: 1.5,
	}
}
