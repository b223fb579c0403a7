// internal/usage/financial.go
package usage

import (
	"math"

	"github.com/stocklens/analytics-go/internal/domain"
)

// DefaultHoldingCostRate is the annual holding cost assumed when a product
// carries no rate of its own: 25% of inventory value per year.
const DefaultHoldingCostRate = 0.25

// FinancialCalculator derives the cost impact of an inventory position from
// unit economics. Every output is nil when its required input is missing.
type FinancialCalculator struct{}

// InventoryValue returns stock_units * unit_cost rounded to cents, or nil
// when no usable unit cost is known.
func (FinancialCalculator) InventoryValue(stockUnits int, unitCost *float64) *float64 {
	if unitCost == nil || *unitCost <= 0 {
		return nil
	}
	v := round2(float64(stockUnits) * *unitCost)
	return &v
}

// HoldingCosts returns daily, monthly and annual carrying costs for the
// current stock level.
func (FinancialCalculator) HoldingCosts(stockUnits int, unitCost, holdingCostRate *float64) (daily, monthly, annual *float64) {
	if unitCost == nil || *unitCost <= 0 {
		return nil, nil, nil
	}

	rate := DefaultHoldingCostRate
	if holdingCostRate != nil && *holdingCostRate != 0 {
		rate = *holdingCostRate
	}

	annualCost := float64(stockUnits) * *unitCost * rate
	d := round2(annualCost / 365)
	m := round2(annualCost / 12)
	a := round2(annualCost)

	return &d, &m, &a
}

// EconomicOrderQuantity applies the Wilson formula EOQ = sqrt(2DS/H), where
// H is the annual holding cost per unit. Returns nil on non-positive inputs.
func (FinancialCalculator) EconomicOrderQuantity(annualDemand, orderCost, unitCost float64, holdingCostRate *float64) *float64 {
	if annualDemand <= 0 || orderCost <= 0 || unitCost <= 0 {
		return nil
	}

	rate := DefaultHoldingCostRate
	if holdingCostRate != nil && *holdingCostRate != 0 {
		rate = *holdingCostRate
	}

	holdingPerUnit := unitCost * rate
	if holdingPerUnit <= 0 {
		return nil
	}

	eoq := math.Round(math.Sqrt(2 * annualDemand * orderCost / holdingPerUnit))
	return &eoq
}

// StockoutRiskCost estimates the revenue lost if stock runs out before a
// replenishment order can arrive. Zero when the predicted stockout falls
// outside the lead time window; nil when the prediction or price is missing.
func (FinancialCalculator) StockoutRiskCost(daysUntilStockout *int, dailyUsage float64, unitPrice *float64, leadTimeDays int) *float64 {
	if daysUntilStockout == nil || unitPrice == nil || *unitPrice <= 0 {
		return nil
	}

	if *daysUntilStockout < leadTimeDays {
		daysWithoutStock := float64(leadTimeDays - *daysUntilStockout)
		cost := round2(dailyUsage * daysWithoutStock * *unitPrice)
		return &cost
	}

	zero := 0.0
	return &zero
}

// FullMetrics assembles the complete financial picture for a product.
func (f FinancialCalculator) FullMetrics(product domain.Product, daysUntilStockout *int, dailyUsage float64, leadTimeDays int) domain.FinancialMetrics {
	value := f.InventoryValue(product.CurrentStockUnits, product.UnitCost)
	daily, monthly, annual := f.HoldingCosts(product.CurrentStockUnits, product.UnitCost, product.HoldingCostRate)

	return domain.FinancialMetrics{
		InventoryValue:           value,
		DailyHoldingCost:         daily,
		MonthlyHoldingCost:       monthly,
		AnnualHoldingCost:        annual,
		ReorderCost:              product.ReorderCost,
		StockoutRiskCost:         f.StockoutRiskCost(daysUntilStockout, dailyUsage, product.UnitPrice, leadTimeDays),
		TotalInventoryInvestment: value,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
