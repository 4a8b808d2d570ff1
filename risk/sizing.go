package risk

import (
	"fmt"
	"math"
)

const (
	// Half-Kelly positions are capped at this fraction of equity.
	kellyCap = 0.25
	// Fixed-amount positions are capped at this fraction of equity.
	fixedAmountCap = 0.1
	// Volatility scaling is capped at this multiple of the base risk.
	volatilityScaleCap = 2
)

type SizingMethod int

const (
	FixedPercentage SizingMethod = iota
	KellyCriterion
	FixedAmount
	VolatilityAdjusted
)

func ParseSizingMethod(value string) (SizingMethod, error) {
	switch value {
	case "fixed_percentage":
		return FixedPercentage, nil
	case "kelly_criterion":
		return KellyCriterion, nil
	case "fixed_amount":
		return FixedAmount, nil
	case "volatility_adjusted":
		return VolatilityAdjusted, nil
	}

	return -1, fmt.Errorf("unknown sizing method: [%v]", value)
}

func (sm SizingMethod) String() string {
	switch sm {
	case FixedPercentage:
		return "fixed_percentage"
	case KellyCriterion:
		return "kelly_criterion"
	case FixedAmount:
		return "fixed_amount"
	case VolatilityAdjusted:
		return "volatility_adjusted"
	default:
		panic("unknown sizing method")
	}
}

type SizingParams struct {
	Equity      float64
	RiskPercent float64
	Amount      float64

	WinRate     float64
	AverageWin  float64
	AverageLoss float64

	CurrentVolatility float64
	AverageVolatility float64
}

// CalculatePosition returns the notional value to commit to the next
// position, according to the chosen method.
func CalculatePosition(
	method SizingMethod,
	params *SizingParams,
) (float64, error) {
	if params.Equity <= 0 {
		return 0, fmt.Errorf("equity must be positive: [%v]", params.Equity)
	}

	switch method {
	case FixedPercentage:
		return params.Equity * params.RiskPercent, nil
	case KellyCriterion:
		fraction := KellyFraction(
			params.WinRate,
			params.AverageWin,
			params.AverageLoss,
		)
		return params.Equity * fraction, nil
	case FixedAmount:
		return math.Min(params.Amount, params.Equity*fixedAmountCap), nil
	case VolatilityAdjusted:
		if params.CurrentVolatility <= 0 {
			return 0, fmt.Errorf(
				"current volatility must be positive: [%v]",
				params.CurrentVolatility,
			)
		}

		scale := params.AverageVolatility / params.CurrentVolatility
		if scale > volatilityScaleCap {
			scale = volatilityScaleCap
		}

		return params.Equity * params.RiskPercent * scale, nil
	}

	return 0, fmt.Errorf("unknown sizing method: [%v]", int(method))
}

// KellyFraction computes f = (b*p - q) / b with b the win/loss
// magnitude ratio, clamps it to [0, 1], halves it and caps the result
// at the kelly cap. Half-Kelly trades theoretical growth for a much
// smoother equity curve.
func KellyFraction(winRate, averageWin, averageLoss float64) float64 {
	if averageLoss <= 0 || averageWin <= 0 {
		return 0
	}

	b := averageWin / averageLoss
	p := winRate
	q := 1 - winRate

	fraction := (b*p - q) / b

	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	fraction = fraction / 2

	if fraction > kellyCap {
		fraction = kellyCap
	}

	return fraction
}
