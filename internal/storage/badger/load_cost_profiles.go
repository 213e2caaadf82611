package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
)

// costProfileFile represents the structure of a cost profile TOML file.
// Format:
//
//	[[profile]]
//	sku = "WIDGET-001"
//	asin = "B0EXAMPLE01"
//	cost = 4.00
//	handling_cost = 1.00
//	shipping_cost = 1.00
//	price_floor = 5.00
//	monitoring_enabled = true
type costProfileFile struct {
	Profiles []models.CostProfile `toml:"profile"`
}

// LoadCostProfilesFromFiles loads cost profiles from all TOML files in a
// directory. Profiles are upserted by SKU, so re-running the loader with
// updated files refreshes existing entries.
func LoadCostProfilesFromFiles(ctx context.Context, storage interfaces.CostProfileStorage, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading cost profiles from files")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("dir", dirPath).Msg("Cost profile directory not found, skipping load")
			return nil
		}
		return err
	}

	loadedCount := 0
	skippedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read cost profile file")
			errorCount++
			continue
		}

		var file costProfileFile
		if err := toml.Unmarshal(content, &file); err != nil {
			logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse cost profile file")
			errorCount++
			continue
		}

		for i := range file.Profiles {
			profile := file.Profiles[i]
			if profile.SKU == "" {
				logger.Warn().Str("file", entry.Name()).Msg("Skipping cost profile with empty SKU")
				skippedCount++
				continue
			}

			if err := storage.SaveProfile(ctx, &profile); err != nil {
				logger.Error().Err(err).Str("sku", profile.SKU).Msg("Failed to store cost profile")
				errorCount++
				continue
			}
			loadedCount++
		}
	}

	logger.Info().
		Int("loaded", loadedCount).
		Int("skipped", skippedCount).
		Int("errors", errorCount).
		Msg("Finished loading cost profiles from files")

	return nil
}
