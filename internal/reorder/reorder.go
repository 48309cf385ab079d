// Package reorder derives stock-health and replenishment signals from an
// inventory item's stored fields. Every function is pure and side-effect-free:
// the metrics are recomputed on each read, never cached in storage.
package reorder

import "math"

// StockoutSentinelDays is returned when velocity is zero — no stockout risk
// from sales alone.
const StockoutSentinelDays = 999

// EOQ cost model defaults.
const (
	defaultOrderCost       = 50.0
	defaultHoldingCostRate = 0.25
	safetyFactor           = 1.5
)

// Stock status levels.
const (
	StatusCritical    = "critical"
	StatusLow         = "low"
	StatusAdequate    = "adequate"
	StatusOverstocked = "overstocked"
)

// Urgency levels by projected days until stockout.
const (
	UrgencyCritical = "critical" // <= 7 days
	UrgencyHigh     = "high"     // <= 14 days
	UrgencyMedium   = "medium"   // <= 30 days
	UrgencyLow      = "low"
)

// Input is the subset of stored inventory fields the engine reads.
type Input struct {
	CurrentStock    int
	ReorderPoint    int
	ReorderQuantity int
	SalesLast30Days int
	SalesLast90Days int
	LeadTimeDays    int
	MinOrderQty     int
	OrderIncrement  int
	MaxStock        *int
}

// Metrics are the derived signals for one item.
type Metrics struct {
	Velocity          float64 `json:"sales_velocity"` // units/day
	DaysUntilStockout float64 `json:"days_until_stockout"`
	Status            string  `json:"stock_status"`
	Urgency           string  `json:"urgency"`
	Recommended       bool    `json:"reorder_recommended"`
	SuggestedQty      int     `json:"suggested_order_quantity"`
	EOQ               int     `json:"economic_order_quantity"`
}

// Analyze computes all derived signals for one item.
func Analyze(in Input) Metrics {
	v := Velocity(in.SalesLast30Days, in.SalesLast90Days)
	days := DaysUntilStockout(in.CurrentStock, v)
	return Metrics{
		Velocity:          v,
		DaysUntilStockout: days,
		Status:            StatusLevel(in.CurrentStock, in.ReorderPoint, in.MaxStock),
		Urgency:           UrgencyFor(days),
		Recommended:       Recommended(in.CurrentStock, in.ReorderPoint),
		SuggestedQty:      SuggestedQuantity(v, in.LeadTimeDays, in.ReorderQuantity, in.MinOrderQty, in.OrderIncrement),
		EOQ:               EconomicOrderQuantity(v),
	}
}

// Velocity returns average units sold per day. The 30-day trailing window is
// the primary signal; when it is zero the 90-day rate is used instead. There
// is no blending — one window wins.
func Velocity(sales30, sales90 int) float64 {
	if sales30 > 0 {
		return float64(sales30) / 30
	}
	if sales90 > 0 {
		return float64(sales90) / 90
	}
	return 0
}

// DaysUntilStockout projects how long current stock lasts at the given
// velocity. Zero velocity yields the sentinel.
func DaysUntilStockout(stock int, velocity float64) float64 {
	if velocity <= 0 {
		return StockoutSentinelDays
	}
	days := float64(stock) / velocity
	if days > StockoutSentinelDays {
		return StockoutSentinelDays
	}
	return days
}

// StatusLevel classifies stock health. Precedence is pinned as: critical only
// at zero stock, low for 0 < stock <= reorder point, overstocked above the
// explicit max (or 3x the reorder point when no max is set), adequate
// otherwise.
func StatusLevel(stock, reorderPoint int, maxStock *int) string {
	switch {
	case stock <= 0:
		return StatusCritical
	case stock <= reorderPoint:
		return StatusLow
	}
	if maxStock != nil {
		if stock > *maxStock {
			return StatusOverstocked
		}
		return StatusAdequate
	}
	if reorderPoint > 0 && stock > 3*reorderPoint {
		return StatusOverstocked
	}
	return StatusAdequate
}

// Recommended reports whether replenishment should be suggested.
func Recommended(stock, reorderPoint int) bool {
	return stock <= reorderPoint
}

// SuggestedQuantity sizes a reorder: the largest of the configured reorder
// quantity, expected lead-time demand with a 1.5x safety factor, and the
// vendor minimum — rounded up to the nearest multiple of the order increment.
func SuggestedQuantity(velocity float64, leadTimeDays, reorderQty, minOrderQty, increment int) int {
	demand := int(math.Ceil(velocity * float64(leadTimeDays) * safetyFactor))
	qty := reorderQty
	if demand > qty {
		qty = demand
	}
	if minOrderQty > qty {
		qty = minOrderQty
	}
	if increment > 1 && qty%increment != 0 {
		qty += increment - qty%increment
	}
	return qty
}

// EconomicOrderQuantity computes the classic EOQ from annualized demand.
// Returns 0 when there is no demand.
func EconomicOrderQuantity(velocity float64) int {
	annualDemand := velocity * 365
	if annualDemand <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(2 * annualDemand * defaultOrderCost / defaultHoldingCostRate)))
}

// UrgencyFor buckets projected days until stockout.
func UrgencyFor(days float64) string {
	switch {
	case days <= 7:
		return UrgencyCritical
	case days <= 14:
		return UrgencyHigh
	case days <= 30:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// UrgencyRank orders urgency levels for max-rollups (higher is more urgent).
func UrgencyRank(u string) int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// MaxUrgency returns the more urgent of a and b.
func MaxUrgency(a, b string) string {
	if UrgencyRank(b) > UrgencyRank(a) {
		return b
	}
	return a
}
