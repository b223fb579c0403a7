// internal/stats/seasonality.go
package stats

import (
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// SeasonalPattern names a recurring cycle found in the usage series.
type SeasonalPattern struct {
	Type         string `json:"type"`
	PeriodMonths int    `json:"period_months"`
}

// SeasonalityResult reports whether the series shows periodic structure and
// how pronounced it is relative to the full spectrum.
type SeasonalityResult struct {
	Seasonal bool              `json:"seasonal"`
	Patterns []SeasonalPattern `json:"patterns,omitempty"`
	Strength float64           `json:"strength"`
}

// DetectSeasonality looks for annual, quarterly and biannual cycles in a
// monthly usage series. The series is detrended with an OLS fit, then the
// five strongest positive-frequency FFT peaks are mapped back to periods in
// months. Needs at least 12 points (one full year).
func DetectSeasonality(series []float64) SeasonalityResult {
	if len(series) < 12 {
		return SeasonalityResult{}
	}

	detrended := detrend(series)
	n := len(detrended)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, detrended)

	// Positive frequencies only; the Nyquist bin of an even-length series is
	// excluded along with DC.
	maxBin := (n - 1) / 2
	if maxBin < 1 {
		return SeasonalityResult{}
	}

	type bin struct {
		k     int
		power float64
	}
	bins := make([]bin, 0, maxBin)
	totalPower := 0.0
	for k := 1; k <= maxBin; k++ {
		p := cmplx.Abs(coeffs[k])
		p *= p
		bins = append(bins, bin{k: k, power: p})
		totalPower += p
	}

	sort.Slice(bins, func(i, j int) bool { return bins[i].power > bins[j].power })
	if len(bins) > 5 {
		bins = bins[:5]
	}

	result := SeasonalityResult{}
	for _, b := range bins {
		period := float64(n) / float64(b.k)
		switch {
		case period >= 11 && period <= 13:
			result.Patterns = append(result.Patterns, SeasonalPattern{Type: "annual", PeriodMonths: 12})
		case period >= 5.5 && period <= 6.5:
			result.Patterns = append(result.Patterns, SeasonalPattern{Type: "biannual", PeriodMonths: 6})
		case period >= 2.5 && period <= 3.5:
			result.Patterns = append(result.Patterns, SeasonalPattern{Type: "quarterly", PeriodMonths: 3})
		}
	}

	if len(result.Patterns) > 0 && totalPower > 0 {
		result.Seasonal = true
		result.Strength = bins[0].power / totalPower
	}

	return result
}

// detrend removes the OLS linear fit from the series, leaving residuals for
// spectral analysis.
func detrend(series []float64) []float64 {
	n := len(series)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, series, nil, false)

	residuals := make([]float64, n)
	for i, y := range series {
		residuals[i] = y - (intercept + slope*xs[i])
	}

	return residuals
}
