package badger

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CostProfileStorage implements the CostProfileStorage interface for Badger.
// Profiles are keyed by SKU.
type CostProfileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCostProfileStorage creates a new CostProfileStorage instance
func NewCostProfileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CostProfileStorage {
	return &CostProfileStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CostProfileStorage) SaveProfile(ctx context.Context, profile *models.CostProfile) error {
	if profile.SKU == "" {
		return fmt.Errorf("cost profile SKU is required")
	}
	if profile.Cost < 0 || profile.HandlingCost < 0 || profile.ShippingCost < 0 || profile.PriceFloor < 0 {
		return fmt.Errorf("cost profile %s has negative cost components", profile.SKU)
	}

	key := strings.ToUpper(profile.SKU)
	if err := s.db.Store().Upsert(key, profile); err != nil {
		return fmt.Errorf("failed to save cost profile: %w", err)
	}
	return nil
}

// GetProfile returns (nil, nil) when no profile exists for the SKU
func (s *CostProfileStorage) GetProfile(ctx context.Context, sku string) (*models.CostProfile, error) {
	var profile models.CostProfile
	if err := s.db.Store().Get(strings.ToUpper(sku), &profile); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cost profile: %w", err)
	}
	return &profile, nil
}

func (s *CostProfileStorage) ListMonitored(ctx context.Context) ([]*models.CostProfile, error) {
	var profiles []models.CostProfile
	query := badgerhold.Where("MonitoringEnabled").Eq(true).SortBy("SKU")
	if err := s.db.Store().Find(&profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list monitored profiles: %w", err)
	}

	result := make([]*models.CostProfile, len(profiles))
	for i := range profiles {
		result[i] = &profiles[i]
	}
	return result, nil
}

func (s *CostProfileStorage) CountProfiles(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CostProfile{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
