package risk

import "testing"

func TestKellyFraction(t *testing.T) {
	// b = 2, f = (2*0.6 - 0.4) / 2 = 0.4, halved to 0.2.
	assertFloatEqual(t, "kelly fraction", 0.2, KellyFraction(0.6, 2, 1))

	// A very favorable edge is capped.
	assertFloatEqual(t, "kelly fraction", 0.25, KellyFraction(0.9, 10, 1))

	// A negative edge yields nothing to bet.
	assertFloatEqual(t, "kelly fraction", 0, KellyFraction(0.3, 1, 1))

	// Degenerate inputs yield nothing to bet.
	assertFloatEqual(t, "kelly fraction", 0, KellyFraction(0.6, 0, 1))
	assertFloatEqual(t, "kelly fraction", 0, KellyFraction(0.6, 1, 0))
}

func TestCalculatePosition_FixedPercentage(t *testing.T) {
	notional, err := CalculatePosition(FixedPercentage, &SizingParams{
		Equity:      10000,
		RiskPercent: 0.02,
	})
	if err != nil {
		t.Fatal(err)
	}

	assertFloatEqual(t, "notional", 200, notional)
}

func TestCalculatePosition_KellyCriterion(t *testing.T) {
	notional, err := CalculatePosition(KellyCriterion, &SizingParams{
		Equity:      10000,
		WinRate:     0.6,
		AverageWin:  2,
		AverageLoss: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	assertFloatEqual(t, "notional", 2000, notional)
}

func TestCalculatePosition_FixedAmount(t *testing.T) {
	notional, err := CalculatePosition(FixedAmount, &SizingParams{
		Equity: 10000,
		Amount: 500,
	})
	if err != nil {
		t.Fatal(err)
	}

	assertFloatEqual(t, "notional", 500, notional)

	// The amount is capped relative to equity.
	notional, err = CalculatePosition(FixedAmount, &SizingParams{
		Equity: 10000,
		Amount: 5000,
	})
	if err != nil {
		t.Fatal(err)
	}

	assertFloatEqual(t, "notional", 1000, notional)
}

func TestCalculatePosition_VolatilityAdjusted(t *testing.T) {
	notional, err := CalculatePosition(VolatilityAdjusted, &SizingParams{
		Equity:            10000,
		RiskPercent:       0.02,
		CurrentVolatility: 0.04,
		AverageVolatility: 0.02,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Elevated volatility halves the base risk.
	assertFloatEqual(t, "notional", 100, notional)

	// Calm markets scale the risk up, capped at twice the base.
	notional, err = CalculatePosition(VolatilityAdjusted, &SizingParams{
		Equity:            10000,
		RiskPercent:       0.02,
		CurrentVolatility: 0.005,
		AverageVolatility: 0.02,
	})
	if err != nil {
		t.Fatal(err)
	}

	assertFloatEqual(t, "notional", 400, notional)
}

func TestCalculatePosition_InvalidInputs(t *testing.T) {
	_, err := CalculatePosition(FixedPercentage, &SizingParams{Equity: 0})
	if err == nil {
		t.Errorf("expected error for non-positive equity")
	}

	_, err = CalculatePosition(VolatilityAdjusted, &SizingParams{
		Equity:      10000,
		RiskPercent: 0.02,
	})
	if err == nil {
		t.Errorf("expected error for non-positive volatility")
	}
}

func TestParseSizingMethod_RoundTrip(t *testing.T) {
	methods := []SizingMethod{
		FixedPercentage,
		KellyCriterion,
		FixedAmount,
		VolatilityAdjusted,
	}

	for _, method := range methods {
		parsed, err := ParseSizingMethod(method.String())
		if err != nil {
			t.Fatal(err)
		}

		if parsed != method {
			t.Errorf(
				"unexpected sizing method\n"+
					"expected: [%v]\n"+
					"actual:   [%v]",
				method,
				parsed,
			)
		}
	}
}
