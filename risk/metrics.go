package risk

import (
	"math"
	"sort"
)

// Statistical risk metrics are computed over the historical return
// series derived from the equity curve. Returns are assumed to be
// daily for annualization purposes.
const annualizationFactor = 252

type Metrics struct {
	UnrealizedPnl            float64
	RealizedPnl              float64
	DailyPnl                 float64
	MaxDrawdown              float64
	CurrentDrawdown          float64
	ValueAtRisk95            float64
	ConditionalValueAtRisk95 float64
	SharpeRatio              float64
	SortinoRatio             float64
	WinRate                  float64
	AverageWin               float64
	AverageLoss              float64
	ProfitFactor             float64
	Expectancy               float64
	OpenPositions            int
	TotalTrades              int
}

type Drawdown struct {
	Max     float64
	Current float64
}

// CalculateDrawdown walks the equity series tracking the running peak
// monotonically. The maximum and the most recent drawdown are tracked
// separately.
func CalculateDrawdown(values []float64) *Drawdown {
	drawdown := &Drawdown{}

	if len(values) == 0 {
		return drawdown
	}

	peak := values[0]

	for _, value := range values {
		if value > peak {
			peak = value
		}

		if peak > 0 {
			drawdown.Current = (peak - value) / peak
		}

		if drawdown.Current > drawdown.Max {
			drawdown.Max = drawdown.Current
		}
	}

	return drawdown
}

func returnsOf(values []float64) []float64 {
	returns := make([]float64, 0, len(values))

	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}

		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}

	return returns
}

// ValueAtRisk is the negated return at the (1-confidence)-percentile
// of the sorted historical return series.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	return -sorted[tailIndex(len(sorted), confidence)]
}

// ConditionalValueAtRisk is the negated mean of the return tail at or
// beyond the VaR percentile.
func ConditionalValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := tailIndex(len(sorted), confidence)

	sum := 0.0
	for _, value := range sorted[:index+1] {
		sum += value
	}

	return -(sum / float64(index+1))
}

// tailIndex is the last index of the loss tail of a sorted return
// series at the given confidence level. The epsilon counters the
// inexact binary representation of the confidence complement before
// flooring.
func tailIndex(length int, confidence float64) int {
	index := int(math.Floor((1-confidence)*float64(length) + 1e-9))
	if index >= length {
		index = length - 1
	}

	return index
}

func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	deviation := stdDev(returns)
	if deviation == 0 {
		return 0
	}

	annualizedReturn := mean(returns) * annualizationFactor
	annualizedDeviation := deviation * math.Sqrt(annualizationFactor)

	return (annualizedReturn - riskFreeRate) / annualizedDeviation
}

// SortinoRatio penalizes only downside volatility: the denominator is
// the standard deviation of the negative returns.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	negative := make([]float64, 0)
	for _, value := range returns {
		if value < 0 {
			negative = append(negative, value)
		}
	}

	if len(negative) < 2 {
		return 0
	}

	downsideDeviation := stdDev(negative)
	if downsideDeviation == 0 {
		return 0
	}

	annualizedReturn := mean(returns) * annualizationFactor
	annualizedDeviation := downsideDeviation * math.Sqrt(annualizationFactor)

	return (annualizedReturn - riskFreeRate) / annualizedDeviation
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	valuesMean := mean(values)

	sum := 0.0
	for _, value := range values {
		deviation := value - valuesMean
		sum += deviation * deviation
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
