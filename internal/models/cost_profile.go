package models

// CostProfile is per-product cost reference data keyed by seller SKU.
// It is read-only from the scan engine's perspective and loaded from
// TOML files at startup.
type CostProfile struct {
	SKU  string `json:"sku" toml:"sku"`
	ASIN string `json:"asin" toml:"asin"`

	Cost         float64 `json:"cost" toml:"cost"`                   // unit cost
	HandlingCost float64 `json:"handling_cost" toml:"handling_cost"` // pick/pack cost
	ShippingCost float64 `json:"shipping_cost" toml:"shipping_cost"` // outbound shipping cost
	PriceFloor   float64 `json:"price_floor" toml:"price_floor"`     // never recommend below this; 0 = no floor

	MonitoringEnabled bool `json:"monitoring_enabled" toml:"monitoring_enabled"`
}

// TotalCost returns the sum of all cost components
func (p *CostProfile) TotalCost() float64 {
	return p.Cost + p.HandlingCost + p.ShippingCost
}
