// internal/forecast/selector.go

// Package forecast chooses a demand forecasting algorithm from the
// characteristics of a usage series. Selection trades accuracy against
// runtime: the simpler methods are far cheaper than a full Prophet fit and
// good enough for short or sparse histories.
package forecast

import "fmt"

// Algorithm identifies a forecasting method.
type Algorithm string

const (
	AlgorithmNaive   Algorithm = "naive"
	AlgorithmSES     Algorithm = "ses"
	AlgorithmETS     Algorithm = "ets"
	AlgorithmCroston Algorithm = "croston"
	AlgorithmProphet Algorithm = "prophet"
)

// Series describes the shape of the history being forecast.
type Series struct {
	DataPoints      int     `json:"data_points"`
	ZerosPercentage float64 `json:"zeros_percentage"`
	HasYearlyData   bool    `json:"has_yearly_data"`
}

// Selection is the chosen algorithm with a human-readable justification.
type Selection struct {
	Algorithm Algorithm `json:"algorithm"`
	Reason    string    `json:"reason"`
}

// Select picks the algorithm for a series. Rules apply in order, first match
// wins; the intermittency check only runs once there is enough data for
// Croston to beat plain smoothing.
func Select(s Series) Selection {
	if s.DataPoints < 5 {
		return Selection{AlgorithmNaive, "Insufficient data (<5 points) - using naive forecast"}
	}

	if s.DataPoints < 30 {
		return Selection{AlgorithmSES, "Limited data (5-29 points) - using Simple Exponential Smoothing"}
	}

	if s.ZerosPercentage > 50 {
		return Selection{AlgorithmCroston, fmt.Sprintf("Intermittent demand (%.0f%% zeros) - using Croston SBA", s.ZerosPercentage)}
	}

	if s.DataPoints < 100 {
		return Selection{AlgorithmETS, "Moderate data (30-99 points) - using AutoETS"}
	}

	if s.HasYearlyData {
		return Selection{AlgorithmProphet, "Rich data (100+ points, yearly) - using Prophet with yearly seasonality"}
	}

	return Selection{AlgorithmProphet, "Sufficient data (100+ points) - using Prophet"}
}
