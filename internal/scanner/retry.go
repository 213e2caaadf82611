package scanner

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
)

// RetryPlanner builds follow-up scan jobs from a completed job's failures.
// Retry at this level replaces per-item retry inside the scan loop: a
// follow-up job naturally spaces the re-attempts out in time, which is what
// rate-limited and transiently-broken items need.
type RetryPlanner struct {
	storage interfaces.StorageManager
	engine  *Engine
	logger  arbor.ILogger
}

// RetryOverrides optionally replaces the parent's pacing parameters for the
// follow-up job. Zero values mean inherit from the parent.
type RetryOverrides struct {
	RatePerSecond float64
	JitterMs      int
	MaxRetries    int
}

// NewRetryPlanner creates a retry planner
func NewRetryPlanner(storage interfaces.StorageManager, engine *Engine, logger arbor.ILogger) *RetryPlanner {
	return &RetryPlanner{
		storage: storage,
		engine:  engine,
		logger:  logger,
	}
}

// PlanRetry starts a follow-up scan over the parent job's failed items.
// Errors when the parent does not exist or recorded no failures.
func (p *RetryPlanner) PlanRetry(ctx context.Context, parentID string, overrides *RetryOverrides) (*models.ScanJob, error) {
	parent, err := p.storage.JobStorage().GetJob(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("cannot retry: %w", err)
	}

	failures, err := p.storage.FailureStorage().ListFailuresByJob(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load failures for job %s: %w", parentID, err)
	}
	if len(failures) == 0 {
		return nil, fmt.Errorf("job %s has no failures to retry", parentID)
	}

	// Failures come back in attempt order, so the retry scan revisits
	// items in the same order the parent did
	items := make([]ScanItem, 0, len(failures))
	for _, failure := range failures {
		items = append(items, ScanItem{ASIN: failure.ASIN, SKU: failure.SKU})
	}

	cfg := ScanConfig{
		RatePerSecond: parent.RatePerSecond,
		JitterMs:      parent.JitterMs,
		MaxRetries:    parent.MaxRetries,
		Source:        models.RetrySource(parentID),
	}
	if overrides != nil {
		if overrides.RatePerSecond > 0 {
			cfg.RatePerSecond = overrides.RatePerSecond
		}
		if overrides.JitterMs > 0 {
			cfg.JitterMs = overrides.JitterMs
		}
		if overrides.MaxRetries > 0 {
			cfg.MaxRetries = overrides.MaxRetries
		}
	}

	p.logger.Info().
		Str("parent_job_id", parentID).
		Int("items", len(items)).
		Msg("Planning retry scan")

	return p.engine.StartScan(ctx, items, cfg)
}
