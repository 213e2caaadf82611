package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
)

// Sweeper reconciles jobs stuck in running state. A job only sits in
// running for longer than the stale threshold when its goroutine died
// without reaching a terminal write (crash, power loss, deploy restart).
type Sweeper struct {
	storage    interfaces.StorageManager
	staleAfter time.Duration
	logger     arbor.ILogger
}

// NewSweeper creates a stale job sweeper
func NewSweeper(storage interfaces.StorageManager, staleAfter time.Duration, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		storage:    storage,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Sweep marks running jobs older than the stale threshold as failed.
// Returns the number of jobs swept.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	running, err := s.storage.JobStorage().GetJobsByStatus(ctx, models.JobStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to list running jobs: %w", err)
	}

	cutoff := time.Now().Add(-s.staleAfter)
	swept := 0

	for _, job := range running {
		if job.StartedAt.After(cutoff) {
			continue
		}

		job.Fail(fmt.Sprintf("marked failed by sweeper: running for more than %v", s.staleAfter))
		if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to sweep stale job")
			continue
		}

		s.logger.Warn().
			Str("job_id", job.ID).
			Str("started_at", job.StartedAt.Format(time.RFC3339)).
			Msg("Swept stale running job")
		swept++
	}

	return swept, nil
}
