// -----------------------------------------------------------------------
// Scan Job Engine - Sequential fetch/calculate/persist loop with pacing
// -----------------------------------------------------------------------

package scanner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/amazon"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/ternarybob/buybox/internal/pricing"
)

// PricingClient is the subset of the pricing API client the engine needs
type PricingClient interface {
	GetCompetitivePricing(ctx context.Context, asin string) (*amazon.OfferSnapshot, error)
}

// ScanItem is one (productId, sku) pair in a scan's input list
type ScanItem struct {
	ASIN string `json:"asin" validate:"required"`
	SKU  string `json:"sku" validate:"required"`
}

// ScanConfig controls pacing and retry bookkeeping for one scan job
type ScanConfig struct {
	RatePerSecond float64
	JitterMs      int
	MaxRetries    int
	Source        string // "scheduled", "manual", or "retry:<parentId>"
}

// Engine drives a bounded list of product identifiers through
// fetch -> calculate -> persist, one identifier in flight at a time.
// Pacing between items exists to respect the upstream API's rate limit,
// so the loop is strictly sequential by design.
type Engine struct {
	storage interfaces.StorageManager
	client  PricingClient
	calcCfg pricing.Config
	logger  arbor.ILogger

	sleep func(time.Duration)
}

// NewEngine creates a scan job engine
func NewEngine(storage interfaces.StorageManager, client PricingClient, calcCfg pricing.Config, logger arbor.ILogger) *Engine {
	return &Engine{
		storage: storage,
		client:  client,
		calcCfg: calcCfg,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// StartScan creates a job in running state and kicks off the scan loop in
// the background. The returned job is the caller's only handle; progress
// is observed by re-reading the job record.
func (e *Engine) StartScan(ctx context.Context, items []ScanItem, cfg ScanConfig) (*models.ScanJob, error) {
	source := cfg.Source
	if source == "" {
		source = models.ScanSourceManual
	}

	job := models.NewScanJob(source, len(items), cfg.RatePerSecond, cfg.JitterMs, cfg.MaxRetries)
	if err := e.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create scan job: %w", err)
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("source", job.Source).
		Int("total", job.TotalCount).
		Msg("Scan job started")

	common.SafeGo(e.logger, "scan:"+job.ID, func() {
		// The scan outlives the request that created it
		e.run(context.Background(), job, items)
	})

	return job, nil
}

// run is the scan loop. Item-level errors are recorded as failure rows and
// never abort the job; only a storage error or a panic in the loop itself
// marks the job failed.
func (e *Engine) run(ctx context.Context, job *models.ScanJob, items []ScanItem) {
	defer func() {
		if r := recover(); r != nil {
			e.abort(ctx, job, fmt.Sprintf("scan loop panicked: %v", r))
			panic(r) // rethrow so SafeGo logs the stack
		}
	}()

	provenance := models.SnapshotSourceBatch
	if job.IsRetry() {
		provenance = models.SnapshotSourceRetry
	}

	for i, item := range items {
		snapshot, err := e.observe(ctx, job, i, item, provenance)
		if err != nil {
			code := amazon.Classify(err)
			failure := models.NewFailure(job.ID, i, item.ASIN, item.SKU, code, err.Error(), job.MaxRetries)
			if storeErr := e.storage.FailureStorage().AppendFailure(ctx, failure); storeErr != nil {
				e.abort(ctx, job, fmt.Sprintf("failed to record failure for %s: %v", item.ASIN, storeErr))
				return
			}
			job.FailureCount++

			e.logger.Warn().
				Str("job_id", job.ID).
				Str("asin", item.ASIN).
				Str("code", string(code)).
				Msg("Scan item failed")
		} else {
			if storeErr := e.storage.SnapshotStorage().AppendSnapshot(ctx, snapshot); storeErr != nil {
				e.abort(ctx, job, fmt.Sprintf("failed to record snapshot for %s: %v", item.ASIN, storeErr))
				return
			}
			job.SuccessCount++
		}

		// Counters are persisted after every item so progress is visible
		// to readers mid-run
		if storeErr := e.storage.JobStorage().SaveJob(ctx, job); storeErr != nil {
			e.abort(ctx, job, fmt.Sprintf("failed to update job counters: %v", storeErr))
			return
		}

		if i < len(items)-1 {
			e.sleep(pacingDelay(job.RatePerSecond, job.JitterMs))
		}
	}

	job.Complete()
	if err := e.storage.JobStorage().SaveJob(ctx, job); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist completed job")
		return
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Int("success", job.SuccessCount).
		Int("failed", job.FailureCount).
		Float64("duration_sec", job.DurationSeconds).
		Msg("Scan job completed")
}

// observe fetches competitive pricing for one item, looks up its cost
// profile and evaluates profitability. Returns the snapshot to persist.
func (e *Engine) observe(ctx context.Context, job *models.ScanJob, seq int, item ScanItem, provenance string) (*models.Snapshot, error) {
	offers, err := e.client.GetCompetitivePricing(ctx, item.ASIN)
	if err != nil {
		return nil, err
	}

	// A missing cost profile is not an error: costs default to zero and
	// the snapshot is flagged for audit
	profile, err := e.storage.CostProfileStorage().GetProfile(ctx, item.SKU)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("sku", item.SKU).
			Msg("Cost profile lookup failed, treating as missing")
		profile = nil
	}

	result := pricing.Evaluate(offers.WinningPrice, profile, e.calcCfg)
	if result.ProfileMissing {
		e.logger.Warn().
			Str("job_id", job.ID).
			Str("sku", item.SKU).
			Msg("No cost profile for SKU, margin fields zeroed")
	}

	snapshot := models.NewSnapshot(job.ID, seq, provenance)
	snapshot.ASIN = item.ASIN
	snapshot.SKU = item.SKU
	snapshot.Title = offers.Title
	snapshot.WinningPrice = offers.WinningPrice
	snapshot.Currency = offers.Currency
	snapshot.SellerHoldsBuyBox = offers.SellerHoldsBuyBox
	snapshot.CompetitorID = offers.CompetitorID
	snapshot.CompetitorName = offers.CompetitorName
	snapshot.CompetitorPrice = offers.CompetitorPrice
	snapshot.TotalOfferCount = offers.TotalOfferCount
	snapshot.FulfillmentChannel = offers.FulfillmentChannel
	snapshot.Margin = result.Margin
	snapshot.MarginPercent = result.MarginPercent
	snapshot.MinProfitablePrice = result.MinProfitablePrice
	snapshot.Opportunity = result.Opportunity
	snapshot.ProfileMissing = result.ProfileMissing

	return snapshot, nil
}

// abort marks the job failed with the loop error in notes. This is a
// best-effort final write before the loop gives up.
func (e *Engine) abort(ctx context.Context, job *models.ScanJob, reason string) {
	e.logger.Error().
		Str("job_id", job.ID).
		Str("reason", reason).
		Msg("Scan job aborted")

	job.Fail(reason)
	if err := e.storage.JobStorage().SaveJob(ctx, job); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failed job status")
	}
}

// pacingDelay is the pause between items: the base interval from the
// configured rate plus uniform random jitter to avoid thundering-herd
// retries across concurrent jobs.
func pacingDelay(ratePerSecond float64, jitterMs int) time.Duration {
	var baseMs float64
	if ratePerSecond > 0 {
		baseMs = 1000 / ratePerSecond
	}

	var jitter float64
	if jitterMs > 0 {
		jitter = rand.Float64() * float64(jitterMs)
	}

	return time.Duration(baseMs+jitter) * time.Millisecond
}
