// Package pricing computes whether matching the winning offer price would
// be profitable for a product, given its cost profile.
package pricing

import (
	"github.com/ternarybob/buybox/internal/models"
)

const (
	// DefaultFeeRate is the marketplace referral fee rate
	DefaultFeeRate = 0.15

	// DefaultMinMarginRequired is the minimum margin (as a fraction of
	// total cost) for a repricing opportunity
	DefaultMinMarginRequired = 0.10
)

// Config holds the calculator parameters. Passed explicitly so the
// calculator stays pure and testable.
type Config struct {
	FeeRate           float64
	MinMarginRequired float64
}

// DefaultConfig returns the standard calculator configuration
func DefaultConfig() Config {
	return Config{
		FeeRate:           DefaultFeeRate,
		MinMarginRequired: DefaultMinMarginRequired,
	}
}

// Result is the profitability evaluation for one observed price
type Result struct {
	TotalCost          float64
	Fee                float64
	Margin             float64
	MarginPercent      float64
	MinProfitablePrice float64
	Opportunity        bool

	// ProfileMissing marks results computed without a cost profile.
	// Costs default to zero in that case, so the margin is meaningless
	// and the opportunity flag is forced off.
	ProfileMissing bool
}

// Evaluate decides whether matching the winning price would be profitable.
// Pure and deterministic: identical inputs always produce identical output,
// and well-formed non-negative inputs never panic.
func Evaluate(price float64, profile *models.CostProfile, cfg Config) Result {
	if profile == nil {
		return Result{ProfileMissing: true}
	}

	totalCost := profile.TotalCost()
	fee := price * cfg.FeeRate
	margin := price - fee - totalCost

	marginPercent := 0.0
	if totalCost > 0 {
		marginPercent = margin / totalCost * 100
	}

	// A fee rate at or above 100% means no price can ever be profitable
	minProfitablePrice := 0.0
	profitable := cfg.FeeRate < 1
	if profitable {
		minProfitablePrice = totalCost * (1 + cfg.MinMarginRequired) / (1 - cfg.FeeRate)
	}

	opportunity := profitable &&
		margin > 0 &&
		marginPercent >= cfg.MinMarginRequired*100 &&
		price >= profile.PriceFloor

	return Result{
		TotalCost:          totalCost,
		Fee:                fee,
		Margin:             margin,
		MarginPercent:      marginPercent,
		MinProfitablePrice: minProfitablePrice,
		Opportunity:        opportunity,
	}
}
