package interfaces

import (
	"context"

	"github.com/ternarybob/buybox/internal/models"
)

// JobListOptions filters and paginates job listings
type JobListOptions struct {
	Status string
	Limit  int
	Offset int
}

// JobStorage persists scan job records
type JobStorage interface {
	// SaveJob upserts a job. The engine calls this after every item so
	// progress is durable before the next identifier is attempted.
	SaveJob(ctx context.Context, job *models.ScanJob) error
	GetJob(ctx context.Context, jobID string) (*models.ScanJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.ScanJob, error)
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.ScanJob, error)
	CountJobs(ctx context.Context) (int, error)
}

// SnapshotStorage persists append-only price snapshots
type SnapshotStorage interface {
	AppendSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	// ListSnapshotsByJob returns a job's snapshots in insertion order
	ListSnapshotsByJob(ctx context.Context, jobID string) ([]*models.Snapshot, error)
	// ListOpportunitiesByJob returns a job's opportunity snapshots ordered
	// by margin percent, best first
	ListOpportunitiesByJob(ctx context.Context, jobID string) ([]*models.Snapshot, error)
}

// FailureStorage persists per-item failure records
type FailureStorage interface {
	AppendFailure(ctx context.Context, failure *models.Failure) error
	// ListFailuresByJob returns a job's failures in insertion order. This
	// is the retry set for the retry planner.
	ListFailuresByJob(ctx context.Context, jobID string) ([]*models.Failure, error)
	CountFailuresByJob(ctx context.Context, jobID string) (int, error)
}

// CostProfileStorage is the read-mostly cost reference data store.
// GetProfile returns (nil, nil) when no profile exists for the SKU; the
// engine treats that as zero-cost but flags the snapshot for audit.
type CostProfileStorage interface {
	SaveProfile(ctx context.Context, profile *models.CostProfile) error
	GetProfile(ctx context.Context, sku string) (*models.CostProfile, error)
	ListMonitored(ctx context.Context) ([]*models.CostProfile, error)
	CountProfiles(ctx context.Context) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	SnapshotStorage() SnapshotStorage
	FailureStorage() FailureStorage
	CostProfileStorage() CostProfileStorage

	// DeleteJob removes a job and cascades to its snapshots and failures.
	// Administrative operation; the engine never deletes jobs.
	DeleteJob(ctx context.Context, jobID string) error

	Close() error
}
