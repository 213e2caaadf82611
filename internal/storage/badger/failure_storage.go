package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// FailureStorage implements the FailureStorage interface for Badger
type FailureStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFailureStorage creates a new FailureStorage instance
func NewFailureStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FailureStorage {
	return &FailureStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FailureStorage) AppendFailure(ctx context.Context, failure *models.Failure) error {
	if failure.ID == "" {
		return fmt.Errorf("failure ID is required")
	}
	if failure.JobID == "" {
		return fmt.Errorf("failure job ID is required")
	}

	if err := s.db.Store().Insert(failure.ID, failure); err != nil {
		return fmt.Errorf("failed to append failure: %w", err)
	}
	return nil
}

func (s *FailureStorage) ListFailuresByJob(ctx context.Context, jobID string) ([]*models.Failure, error) {
	var failures []models.Failure
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("Seq")
	if err := s.db.Store().Find(&failures, query); err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}

	result := make([]*models.Failure, len(failures))
	for i := range failures {
		result[i] = &failures[i]
	}
	return result, nil
}

func (s *FailureStorage) CountFailuresByJob(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.Failure{}, badgerhold.Where("JobID").Eq(jobID).Index("JobID"))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
