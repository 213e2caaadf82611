package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SnapshotStorage) AppendSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("snapshot ID is required")
	}
	if snapshot.JobID == "" {
		return fmt.Errorf("snapshot job ID is required")
	}

	// Insert, not upsert: snapshots are append-only history
	if err := s.db.Store().Insert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) ListSnapshotsByJob(ctx context.Context, jobID string) ([]*models.Snapshot, error) {
	var snapshots []models.Snapshot
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("Seq")
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	result := make([]*models.Snapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}

func (s *SnapshotStorage) ListOpportunitiesByJob(ctx context.Context, jobID string) ([]*models.Snapshot, error) {
	var snapshots []models.Snapshot
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").And("Opportunity").Eq(true)
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	// Best margin first
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].MarginPercent > snapshots[j].MarginPercent
	})

	result := make([]*models.Snapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
