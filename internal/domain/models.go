// internal/domain/models.go
package domain

import "time"

// Product is the catalog entity owned by the surrounding platform. The usage
// engine reads stock/config fields and writes back the derived usage fields
// in a separate apply step.
type Product struct {
	ID                string   `json:"id" db:"id"`
	ClientID          string   `json:"client_id" db:"client_id"`
	ProductID         string   `json:"product_id" db:"product_id"`
	Name              string   `json:"name" db:"name"`
	PackSize          int      `json:"pack_size" db:"pack_size"`
	CurrentStockPacks int      `json:"current_stock_packs" db:"current_stock_packs"`
	CurrentStockUnits int      `json:"current_stock_units" db:"current_stock_units"`
	NotificationPoint *int     `json:"notification_point" db:"notification_point"`
	ItemType          string   `json:"item_type" db:"item_type"`
	IsActive          bool     `json:"is_active" db:"is_active"`
	UnitCost          *float64 `json:"unit_cost" db:"unit_cost"`
	UnitPrice         *float64 `json:"unit_price" db:"unit_price"`
	HoldingCostRate   *float64 `json:"holding_cost_rate" db:"holding_cost_rate"`
	ReorderCost       *float64 `json:"reorder_cost" db:"reorder_cost"`
	TotalLeadDays     *int     `json:"total_lead_days" db:"total_lead_days"`
}

// ClientConfiguration supplies client-level reorder defaults.
type ClientConfiguration struct {
	ClientID         string `json:"client_id" db:"client_id"`
	ReorderLeadDays  int    `json:"reorder_lead_days" db:"reorder_lead_days"`
	SafetyStockWeeks int    `json:"safety_stock_weeks" db:"safety_stock_weeks"`
	CriticalWeeks    int    `json:"critical_weeks" db:"critical_weeks"`
	LowWeeks         int    `json:"low_weeks" db:"low_weeks"`
	WatchWeeks       int    `json:"watch_weeks" db:"watch_weeks"`
}

// MonthlyOrderTotal is one row of the monthly-aggregated completed-order
// history for a product, ascending by month.
type MonthlyOrderTotal struct {
	Month            time.Time `json:"month" db:"month"`
	TotalUnits       float64   `json:"total_units" db:"total_units"`
	TotalPacks       float64   `json:"total_packs" db:"total_packs"`
	TransactionCount int       `json:"transaction_count" db:"transaction_count"`
}

// StockSnapshot is one point-in-time stock level record.
type StockSnapshot struct {
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
	PacksAvailable int       `json:"packs_available" db:"packs_available"`
	TotalUnits     float64   `json:"total_units" db:"total_units"`
	Source         string    `json:"source" db:"source"`
}

// UsageEstimate is the immutable result of one usage calculation. A fresh
// value is constructed per calculation call; it is never persisted as its own
// entity - selected fields are copied onto the Product by ApplyEstimate.
type UsageEstimate struct {
	ProductID           string            `json:"product_id"`
	MonthlyUsageUnits   float64           `json:"monthly_usage_units"`
	MonthlyUsagePacks   float64           `json:"monthly_usage_packs"`
	CalculationMethod   CalculationMethod `json:"calculation_method"`
	ConfidenceScore     float64           `json:"confidence_score"`
	ConfidenceLevel     ConfidenceLevel   `json:"confidence_level"`
	DataMonths          int               `json:"data_months"`
	CalculationTier     CalculationTier   `json:"calculation_tier"`
	TrendDirection      TrendDirection    `json:"trend_direction"`
	SeasonalityDetected bool              `json:"seasonality_detected"`
	OutliersDetected    int               `json:"outliers_detected"`
	Variance            float64           `json:"variance"`
	CV                  float64           `json:"cv"`
	DaysSinceLastData   int               `json:"days_since_last_data"`
}

// ValidationMessage is an advisory finding attached to a computed estimate.
type ValidationMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ConfidenceInterval bounds a stockout date prediction.
type ConfidenceInterval struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// StockoutPrediction projects when current stock will be exhausted. All
// fields except ConfidenceScore are nil when no prediction is possible.
type StockoutPrediction struct {
	PredictedDate      *time.Time          `json:"predicted_date"`
	DaysUntilStockout  *int                `json:"days_until_stockout"`
	ConfidenceScore    float64             `json:"confidence_score"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval"`
}

// ReorderSuggestion is the output of the reorder-quantity formula.
type ReorderSuggestion struct {
	SuggestedQuantityPacks int    `json:"suggested_quantity_packs"`
	SuggestedQuantityUnits int    `json:"suggested_quantity_units"`
	ReorderPointPacks      int    `json:"reorder_point_packs"`
	SafetyStockPacks       int    `json:"safety_stock_packs"`
	LeadTimeDemandPacks    int    `json:"lead_time_demand_packs"`
	LeadTimeDays           int    `json:"lead_time_days"`
	LeadTimeSource         string `json:"lead_time_source"`
}

// FinancialMetrics captures the cost impact of an inventory position.
// Nil fields mean the underlying input (unit cost, price) was unavailable.
type FinancialMetrics struct {
	InventoryValue           *float64 `json:"inventory_value"`
	DailyHoldingCost         *float64 `json:"daily_holding_cost"`
	MonthlyHoldingCost       *float64 `json:"monthly_holding_cost"`
	AnnualHoldingCost        *float64 `json:"annual_holding_cost"`
	ReorderCost              *float64 `json:"reorder_cost"`
	StockoutRiskCost         *float64 `json:"stockout_risk_cost"`
	TotalInventoryInvestment *float64 `json:"total_inventory_investment"`
}

// UsageReport is the full per-product calculation response.
type UsageReport struct {
	ProductID           string              `json:"product_id"`
	ProductName         string              `json:"product_name"`
	MonthlyUsageUnits   float64             `json:"monthly_usage_units"`
	MonthlyUsagePacks   float64             `json:"monthly_usage_packs"`
	WeeksRemaining      *float64            `json:"weeks_remaining"`
	StockStatus         StockStatus         `json:"stock_status"`
	CalculationMethod   CalculationMethod   `json:"calculation_method"`
	ConfidenceScore     float64             `json:"confidence_score"`
	ConfidenceLevel     ConfidenceLevel     `json:"confidence_level"`
	DataMonths          int                 `json:"data_months"`
	CalculationTier     CalculationTier     `json:"calculation_tier"`
	Trend               TrendDirection      `json:"trend"`
	SeasonalityDetected bool                `json:"seasonality_detected"`
	OutliersDetected    int                 `json:"outliers_detected"`
	PredictedStockout   *StockoutPrediction `json:"predicted_stockout"`
	ReorderSuggestion   *ReorderSuggestion  `json:"reorder_suggestion"`
	FinancialMetrics    *FinancialMetrics   `json:"financial_metrics"`
	ValidationMessages  []ValidationMessage `json:"validation_messages"`
	CalculatedAt        time.Time           `json:"calculated_at"`
}

// ProductUsageUpdate is the set of derived fields written back onto a
// product after a calculation. Pointer fields clear their column when nil.
type ProductUsageUpdate struct {
	ProductID              string
	MonthlyUsageUnits      float64
	MonthlyUsagePacks      float64
	UsageDataMonths        int
	UsageCalculationTier   CalculationTier
	UsageConfidence        ConfidenceLevel
	UsageLastCalculated    time.Time
	UsageCalculationMethod CalculationMethod
	UsageTrend             TrendDirection
	SeasonalityDetected    bool
	WeeksRemaining         *float64
	StockStatus            StockStatus
	ProjectedStockoutDate  *time.Time
	StockoutConfidence     *float64
	SuggestedReorderQty    *int
	ReorderQtyLastUpdated  time.Time
}

// UsageStats summarises calculation coverage across the catalog.
type UsageStats struct {
	TotalProducts              int            `json:"total_products"`
	ProductsWithUsage          int            `json:"products_with_usage"`
	ProductsNeedingCalculation int            `json:"products_needing_calculation"`
	AvgConfidenceScore         float64        `json:"avg_confidence_score"`
	HighConfidenceCount        int            `json:"high_confidence_count"`
	MediumConfidenceCount      int            `json:"medium_confidence_count"`
	LowConfidenceCount         int            `json:"low_confidence_count"`
	CalculationMethods         map[string]int `json:"calculation_methods"`
}

// BatchResult reports the outcome of a client-wide recalculation.
type BatchResult struct {
	ClientID           string    `json:"client_id"`
	ProductsProcessed  int       `json:"products_processed"`
	ProductsFailed     int       `json:"products_failed"`
	Aborted            bool      `json:"aborted"`
	AbortReason        string    `json:"abort_reason,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	CompletedAt        time.Time `json:"completed_at"`
	ConsecutiveFailMax int       `json:"consecutive_fail_max"`
}
