// internal/usage/validator.go
package usage

import (
	"fmt"

	"github.com/stocklens/analytics-go/internal/domain"
	"github.com/stocklens/analytics-go/internal/stats"
)

// Validator checks computed usage estimates against business rules. Findings
// are advisory only and never block a result from being returned or applied.
type Validator struct{}

// ValidateEstimate runs every rule independently and returns the findings in
// rule order.
func (Validator) ValidateEstimate(est domain.UsageEstimate, product domain.Product) []domain.ValidationMessage {
	var messages []domain.ValidationMessage

	add := func(level, message string) {
		messages = append(messages, domain.ValidationMessage{Level: level, Message: message})
	}

	if est.MonthlyUsageUnits < 0 {
		add(domain.LevelError, "Monthly usage cannot be negative")
	}

	if product.CurrentStockUnits > 0 && est.MonthlyUsageUnits > float64(product.CurrentStockUnits)*10 {
		add(domain.LevelWarning, fmt.Sprintf(
			"Monthly usage (%.0f) is >10x current stock (%d) - may indicate data issue",
			est.MonthlyUsageUnits, product.CurrentStockUnits))
	}

	if est.ConfidenceLevel == domain.ConfidenceLow {
		add(domain.LevelWarning, fmt.Sprintf(
			"Low confidence (%.2f) - recommend reviewing data or increasing collection period",
			est.ConfidenceScore))
	}

	if est.OutliersDetected > 2 {
		add(domain.LevelWarning, fmt.Sprintf(
			"Detected %d outlier months - usage may be irregular or seasonal",
			est.OutliersDetected))
	}

	if product.NotificationPoint != nil && *product.NotificationPoint != 0 && est.MonthlyUsagePacks > 0 {
		impliedWeeks := float64(*product.NotificationPoint) / est.MonthlyUsagePacks * stats.WeeksPerMonth
		if impliedWeeks < 1 || impliedWeeks > 26 {
			add(domain.LevelWarning, fmt.Sprintf(
				"Notification point implies %.1f weeks of usage - verify notification point is correct",
				impliedWeeks))
		}
	}

	if est.MonthlyUsageUnits == 0 && product.IsActive {
		add(domain.LevelInfo, "Zero usage detected for active product - may be newly added or dormant")
	}

	if est.CV > 1.0 {
		add(domain.LevelInfo, fmt.Sprintf(
			"High usage variability (CV=%.2f) - consider seasonality or irregular ordering patterns",
			est.CV))
	}

	if est.DaysSinceLastData > 90 {
		add(domain.LevelWarning, fmt.Sprintf(
			"Last data is %d days old - calculation may not reflect current patterns",
			est.DaysSinceLastData))
	}

	if product.ItemType == domain.ItemTypeEvent && est.MonthlyUsageUnits > 0 {
		add(domain.LevelInfo, "Event items typically have one-time usage - monthly usage may not be meaningful")
	}

	if product.ItemType == domain.ItemTypeCompleted && est.MonthlyUsageUnits > 0 {
		add(domain.LevelInfo, "Completed items should not have ongoing usage - verify product status")
	}

	return messages
}

// BatchValidation summarises validation findings across a client's catalog.
type BatchValidation struct {
	ClientID             string   `json:"client_id"`
	TotalProducts        int      `json:"total_products"`
	ProductsWithErrors   int      `json:"products_with_errors"`
	ProductsWithWarnings int      `json:"products_with_warnings"`
	ErrorRate            float64  `json:"error_rate"`
	WarningRate          float64  `json:"warning_rate"`
	TopErrors            []string `json:"top_errors"`
	TopWarnings          []string `json:"top_warnings"`
}

// ValidateBatch aggregates per-product findings into a client summary with
// up to five distinct messages per severity.
func (v Validator) ValidateBatch(clientID string, pairs []struct {
	Estimate domain.UsageEstimate
	Product  domain.Product
}) BatchValidation {
	summary := BatchValidation{
		ClientID:      clientID,
		TotalProducts: len(pairs),
	}

	seenErrors := map[string]bool{}
	seenWarnings := map[string]bool{}

	for _, p := range pairs {
		messages := v.ValidateEstimate(p.Estimate, p.Product)

		hasError, hasWarning := false, false
		for _, m := range messages {
			switch m.Level {
			case domain.LevelError:
				hasError = true
				if !seenErrors[m.Message] && len(summary.TopErrors) < 5 {
					seenErrors[m.Message] = true
					summary.TopErrors = append(summary.TopErrors, m.Message)
				}
			case domain.LevelWarning:
				hasWarning = true
				if !seenWarnings[m.Message] && len(summary.TopWarnings) < 5 {
					seenWarnings[m.Message] = true
					summary.TopWarnings = append(summary.TopWarnings, m.Message)
				}
			}
		}

		if hasError {
			summary.ProductsWithErrors++
		}
		if hasWarning {
			summary.ProductsWithWarnings++
		}
	}

	if summary.TotalProducts > 0 {
		summary.ErrorRate = float64(summary.ProductsWithErrors) / float64(summary.TotalProducts)
		summary.WarningRate = float64(summary.ProductsWithWarnings) / float64(summary.TotalProducts)
	}

	return summary
}
