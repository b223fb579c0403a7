// internal/usage/confidence_test.go
package usage

import (
	"testing"

	"github.com/stocklens/analytics-go/internal/domain"
)

func TestConfidenceScore(t *testing.T) {
	var calc ConfidenceCalculator

	// All factors at their best band with the hybrid method:
	// 0.30*1.0 + 0.25*1.0 + 0.20*1.0 + 0.15*0.95 + 0.10*0.5 = 0.9425
	got := calc.Score(ConfidenceInput{
		DataPoints:        12,
		CV:                0.1,
		DaysSinceLastData: 10,
		Method:            domain.MethodHybrid,
	})
	if got != 0.94 {
		t.Errorf("score = %v, want 0.94", got)
	}

	// Mid bands: 0.30*0.75 + 0.25*0.7 + 0.20*0.8 + 0.15*0.85 + 0.10*0.5 = 0.7375
	got = calc.Score(ConfidenceInput{
		DataPoints:        6,
		CV:                0.3,
		DaysSinceLastData: 45,
		Method:            domain.MethodOrderFulfillment,
	})
	if got != 0.74 {
		t.Errorf("score = %v, want 0.74", got)
	}

	// Unknown method falls back to 0.5 reliability:
	// 0.30*1.0 + 0.25*0.7 + 0.20*1.0 + 0.15*0.5 + 0.10*0.5 = 0.80
	got = calc.Score(ConfidenceInput{
		DataPoints:        12,
		CV:                0.3,
		DaysSinceLastData: 10,
		Method:            domain.CalculationMethod("bogus"),
	})
	if got != 0.80 {
		t.Errorf("score with unknown method = %v, want 0.80", got)
	}
}

func TestConfidenceLevel(t *testing.T) {
	var calc ConfidenceCalculator

	cases := []struct {
		score float64
		want  domain.ConfidenceLevel
	}{
		{0.75, domain.ConfidenceHigh},
		{0.9, domain.ConfidenceHigh},
		{0.74, domain.ConfidenceMedium},
		{0.50, domain.ConfidenceMedium},
		{0.49, domain.ConfidenceLow},
		{0, domain.ConfidenceLow},
	}
	for _, tc := range cases {
		if got := calc.Level(tc.score); got != tc.want {
			t.Errorf("Level(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestCalculationTier(t *testing.T) {
	var calc ConfidenceCalculator

	cases := []struct {
		months int
		want   domain.CalculationTier
	}{
		{12, domain.Tier12Month},
		{18, domain.Tier12Month},
		{6, domain.Tier6Month},
		{11, domain.Tier6Month},
		{3, domain.Tier3Month},
		{2, domain.TierWeekly},
		{0, domain.TierWeekly},
	}
	for _, tc := range cases {
		if got := calc.Tier(tc.months); got != tc.want {
			t.Errorf("Tier(%d) = %s, want %s", tc.months, got, tc.want)
		}
	}
}
