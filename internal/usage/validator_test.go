// internal/usage/validator_test.go
package usage

import (
	"strings"
	"testing"

	"github.com/stocklens/analytics-go/internal/domain"
)

func TestValidateCleanEstimate(t *testing.T) {
	var v Validator

	est := domain.UsageEstimate{
		MonthlyUsageUnits: 100,
		MonthlyUsagePacks: 10,
		ConfidenceScore:   0.9,
		ConfidenceLevel:   domain.ConfidenceHigh,
		CV:                0.2,
		DaysSinceLastData: 10,
	}
	product := domain.Product{
		CurrentStockUnits: 400,
		IsActive:          true,
		ItemType:          domain.ItemTypeEvergreen,
	}

	if msgs := v.ValidateEstimate(est, product); len(msgs) != 0 {
		t.Errorf("clean estimate produced %d messages: %+v", len(msgs), msgs)
	}
}

func TestValidateNegativeUsage(t *testing.T) {
	var v Validator

	msgs := v.ValidateEstimate(domain.UsageEstimate{MonthlyUsageUnits: -5}, domain.Product{})
	if !hasLevel(msgs, domain.LevelError) {
		t.Errorf("negative usage should be an error, got %+v", msgs)
	}
}

func TestValidateUsageExceedsStock(t *testing.T) {
	var v Validator

	est := domain.UsageEstimate{
		MonthlyUsageUnits: 1100,
		ConfidenceLevel:   domain.ConfidenceHigh,
	}
	product := domain.Product{CurrentStockUnits: 100}

	msgs := v.ValidateEstimate(est, product)
	if !hasMessage(msgs, ">10x current stock") {
		t.Errorf("10x stock rule not triggered: %+v", msgs)
	}

	// Exactly 10x is allowed; the rule needs a strict excess.
	est.MonthlyUsageUnits = 1000
	msgs = v.ValidateEstimate(est, product)
	if hasMessage(msgs, ">10x current stock") {
		t.Errorf("10x boundary should not trigger: %+v", msgs)
	}
}

func TestValidateIndependentRules(t *testing.T) {
	var v Validator

	// One estimate tripping several rules at once: low confidence, many
	// outliers, stale data, high CV and an implausible notification point.
	np := 100
	est := domain.UsageEstimate{
		MonthlyUsageUnits: 50,
		MonthlyUsagePacks: 10,
		ConfidenceScore:   0.3,
		ConfidenceLevel:   domain.ConfidenceLow,
		OutliersDetected:  3,
		CV:                1.5,
		DaysSinceLastData: 120,
	}
	product := domain.Product{
		CurrentStockUnits: 500,
		NotificationPoint: &np,
		ItemType:          domain.ItemTypeEvent,
	}

	msgs := v.ValidateEstimate(est, product)

	for _, want := range []string{
		"Low confidence",
		"outlier months",
		// 100/10*4.33 = 43.3 implied weeks, outside the 1..26 band
		"43.3 weeks",
		"High usage variability",
		"120 days old",
		"Event items",
	} {
		if !hasMessage(msgs, want) {
			t.Errorf("missing %q in %+v", want, msgs)
		}
	}

	if hasLevel(msgs, domain.LevelError) {
		t.Errorf("no rule here should be an error: %+v", msgs)
	}
}

func TestValidateZeroUsageActive(t *testing.T) {
	var v Validator

	msgs := v.ValidateEstimate(domain.UsageEstimate{}, domain.Product{IsActive: true})
	if !hasMessage(msgs, "Zero usage") {
		t.Errorf("zero-usage rule not triggered: %+v", msgs)
	}

	msgs = v.ValidateEstimate(domain.UsageEstimate{}, domain.Product{IsActive: false})
	if hasMessage(msgs, "Zero usage") {
		t.Errorf("inactive product should not trigger zero-usage rule: %+v", msgs)
	}
}

func TestValidateCompletedItem(t *testing.T) {
	var v Validator

	est := domain.UsageEstimate{
		MonthlyUsageUnits: 10,
		ConfidenceLevel:   domain.ConfidenceHigh,
	}
	msgs := v.ValidateEstimate(est, domain.Product{ItemType: domain.ItemTypeCompleted})
	if !hasMessage(msgs, "Completed items") {
		t.Errorf("completed-item rule not triggered: %+v", msgs)
	}
}

func TestValidateBatch(t *testing.T) {
	var v Validator

	pairs := []struct {
		Estimate domain.UsageEstimate
		Product  domain.Product
	}{
		{domain.UsageEstimate{MonthlyUsageUnits: -1}, domain.Product{}},
		{domain.UsageEstimate{MonthlyUsageUnits: 100, ConfidenceLevel: domain.ConfidenceLow}, domain.Product{}},
		{domain.UsageEstimate{MonthlyUsageUnits: 100, ConfidenceLevel: domain.ConfidenceHigh, CV: 0.1, DaysSinceLastData: 5}, domain.Product{}},
	}

	summary := v.ValidateBatch("c1", pairs)

	if summary.TotalProducts != 3 {
		t.Errorf("total = %d, want 3", summary.TotalProducts)
	}
	if summary.ProductsWithErrors != 1 {
		t.Errorf("errors = %d, want 1", summary.ProductsWithErrors)
	}
	if summary.ProductsWithWarnings != 1 {
		t.Errorf("warnings = %d, want 1", summary.ProductsWithWarnings)
	}
	if summary.ErrorRate != 1.0/3 {
		t.Errorf("error rate = %v, want 1/3", summary.ErrorRate)
	}
	if len(summary.TopErrors) != 1 {
		t.Errorf("top errors = %v, want one distinct message", summary.TopErrors)
	}
}

func hasLevel(msgs []domain.ValidationMessage, level string) bool {
	for _, m := range msgs {
		if m.Level == level {
			return true
		}
	}
	return false
}

func hasMessage(msgs []domain.ValidationMessage, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}
