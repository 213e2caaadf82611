// -----------------------------------------------------------------------
// Price Snapshot - Append-only record of one observed competitive state
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/ternarybob/buybox/internal/common"
)

// Snapshot provenance tags
const (
	SnapshotSourceBatch = "batch"
	SnapshotSourceRetry = "retry"
	SnapshotSourceLive  = "live"
)

// Snapshot is one successfully observed competitive state for a product
// within a scan job. Snapshots are immutable once written; a later scan
// produces a new row, never an update.
type Snapshot struct {
	ID    string `json:"id"`
	JobID string `json:"job_id" badgerholdIndex:"JobID"`
	Seq   int    `json:"seq"` // insertion order within the job

	ASIN  string `json:"asin"`
	SKU   string `json:"sku"`
	Title string `json:"title,omitempty"`

	WinningPrice       float64 `json:"winning_price"`
	Currency           string  `json:"currency"`
	SellerHoldsBuyBox  bool    `json:"seller_holds_buy_box"`
	CompetitorID       string  `json:"competitor_id,omitempty"`
	CompetitorName     string  `json:"competitor_name,omitempty"`
	CompetitorPrice    float64 `json:"competitor_price,omitempty"`
	TotalOfferCount    int     `json:"total_offer_count"`
	FulfillmentChannel string  `json:"fulfillment_channel,omitempty"`

	Margin             float64 `json:"margin"`
	MarginPercent      float64 `json:"margin_percent"`
	MinProfitablePrice float64 `json:"min_profitable_price"`
	Opportunity        bool    `json:"opportunity"`

	// ProfileMissing flags snapshots computed without a cost profile so a
	// false "opportunity" from assumed-zero costs can be audited.
	ProfileMissing bool `json:"profile_missing,omitempty"`

	Source     string    `json:"source"` // "batch", "retry", or "live"
	CapturedAt time.Time `json:"captured_at"`
}

// NewSnapshot creates a snapshot row for a job with its insertion sequence
func NewSnapshot(jobID string, seq int, source string) *Snapshot {
	return &Snapshot{
		ID:         common.NewSnapshotID(),
		JobID:      jobID,
		Seq:        seq,
		Source:     source,
		CapturedAt: time.Now(),
	}
}
