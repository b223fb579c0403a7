package domain

// CalculationMethod identifies which estimator produced a usage estimate.
type CalculationMethod string

const (
	MethodOrderFulfillment CalculationMethod = "order_fulfillment"
	MethodSnapshotDelta    CalculationMethod = "snapshot_delta"
	MethodHybrid           CalculationMethod = "hybrid"
	MethodStockMovement    CalculationMethod = "stock_movement"
	MethodEstimated        CalculationMethod = "estimated"
	MethodNoData           CalculationMethod = "no_data"
)

// ConfidenceLevel is the categorical form of a confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// StockStatus classifies how many weeks of supply remain.
type StockStatus string

const (
	StockCritical StockStatus = "critical"
	StockLow      StockStatus = "low"
	StockWatch    StockStatus = "watch"
	StockHealthy  StockStatus = "healthy"
	StockUnknown  StockStatus = "unknown"
)

// TrendDirection describes the usage velocity over the observation window.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendStable     TrendDirection = "stable"
	TrendDecreasing TrendDirection = "decreasing"
	TrendUnknown    TrendDirection = "unknown"
)

// CalculationTier labels how much history backed an estimate.
type CalculationTier string

const (
	Tier12Month   CalculationTier = "12_month"
	Tier6Month    CalculationTier = "6_month"
	Tier3Month    CalculationTier = "3_month"
	TierWeekly    CalculationTier = "weekly"
	TierEstimated CalculationTier = "estimated"
	TierNoData    CalculationTier = "no_data"
)

// Validation message severities.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// Item types carried on the product catalog.
const (
	ItemTypeEvergreen = "evergreen"
	ItemTypeEvent     = "event"
	ItemTypeCompleted = "completed"
)
