package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	job         interfaces.JobStorage
	snapshot    interfaces.SnapshotStorage
	failure     interfaces.FailureStorage
	costProfile interfaces.CostProfileStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		job:         NewJobStorage(db, logger),
		snapshot:    NewSnapshotStorage(db, logger),
		failure:     NewFailureStorage(db, logger),
		costProfile: NewCostProfileStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the scan job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// SnapshotStorage returns the snapshot storage interface
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshot
}

// FailureStorage returns the failure storage interface
func (m *Manager) FailureStorage() interfaces.FailureStorage {
	return m.failure
}

// CostProfileStorage returns the cost profile storage interface
func (m *Manager) CostProfileStorage() interfaces.CostProfileStorage {
	return m.costProfile
}

// DeleteJob deletes a job and cascades to its snapshots and failures
func (m *Manager) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}

	store := m.db.Store()

	if err := store.DeleteMatching(&models.Snapshot{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete snapshots for job %s: %w", jobID, err)
	}
	if err := store.DeleteMatching(&models.Failure{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete failures for job %s: %w", jobID, err)
	}
	if err := store.Delete(jobID, &models.ScanJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}

	m.logger.Info().Str("job_id", jobID).Msg("Job deleted with snapshots and failures")
	return nil
}

// LoadCostProfilesFromFiles loads cost profiles from TOML files in a directory
func (m *Manager) LoadCostProfilesFromFiles(ctx context.Context, dirPath string) error {
	return LoadCostProfilesFromFiles(ctx, m.costProfile, dirPath, m.logger)
}

// DB returns the underlying database connection
func (m *Manager) DB() *badgerhold.Store {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
