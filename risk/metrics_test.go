package risk

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func TestCalculateDrawdown(t *testing.T) {
	drawdown := CalculateDrawdown([]float64{100, 120, 90, 110})

	assertFloatEqual(t, "max drawdown", 0.25, drawdown.Max)
	assertFloatEqual(t, "current drawdown", 10.0/120.0, drawdown.Current)
}

func TestCalculateDrawdown_MonotonicPeak(t *testing.T) {
	// The peak never goes down: the 80 -> 100 recovery does not reset
	// the reference for the subsequent drop.
	drawdown := CalculateDrawdown([]float64{100, 120, 80, 100, 60})

	assertFloatEqual(t, "max drawdown", 0.5, drawdown.Max)
	assertFloatEqual(t, "current drawdown", 0.5, drawdown.Current)
}

func TestCalculateDrawdown_Empty(t *testing.T) {
	drawdown := CalculateDrawdown(nil)

	assertFloatEqual(t, "max drawdown", 0, drawdown.Max)
	assertFloatEqual(t, "current drawdown", 0, drawdown.Current)
}

func TestValueAtRisk(t *testing.T) {
	returns := []float64{
		0.01, -0.02, 0.03, -0.04, 0.05, -0.01, 0.02, -0.03, 0.04, 0.01,
	}

	assertFloatEqual(t, "var 95", 0.04, ValueAtRisk(returns, 0.95))
	assertFloatEqual(t, "var 90", 0.03, ValueAtRisk(returns, 0.90))
}

func TestConditionalValueAtRisk(t *testing.T) {
	returns := []float64{
		0.01, -0.02, 0.03, -0.04, 0.05, -0.01, 0.02, -0.03, 0.04, 0.01,
	}

	assertFloatEqual(
		t,
		"cvar 95",
		0.04,
		ConditionalValueAtRisk(returns, 0.95),
	)
	assertFloatEqual(
		t,
		"cvar 90",
		0.035,
		ConditionalValueAtRisk(returns, 0.90),
	)
}

func TestValueAtRisk_Empty(t *testing.T) {
	assertFloatEqual(t, "var", 0, ValueAtRisk(nil, 0.95))
	assertFloatEqual(t, "cvar", 0, ConditionalValueAtRisk(nil, 0.95))
}

func TestSharpeRatio(t *testing.T) {
	positive := []float64{0.01, -0.005, 0.02, 0.015}

	if SharpeRatio(positive, 0.02) <= 0 {
		t.Errorf("expected positive sharpe ratio for winning returns")
	}

	// Too short a series yields no meaningful ratio.
	assertFloatEqual(t, "sharpe", 0, SharpeRatio([]float64{0.01}, 0.02))

	// Zero volatility yields no meaningful ratio either.
	assertFloatEqual(
		t,
		"sharpe",
		0,
		SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02),
	)
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}

	if SortinoRatio(returns, 0.02) <= 0 {
		t.Errorf("expected positive sortino ratio for winning returns")
	}

	// Without enough downside observations the ratio is undefined.
	assertFloatEqual(
		t,
		"sortino",
		0,
		SortinoRatio([]float64{0.01, 0.02, 0.03}, 0.02),
	)
}

func assertFloatEqual(t *testing.T, name string, expected, actual float64) {
	if math.Abs(expected-actual) > floatTolerance {
		t.Errorf(
			"unexpected %v\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			name,
			expected,
			actual,
		)
	}
}
