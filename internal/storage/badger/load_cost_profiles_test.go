package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestLoadCostProfilesFromFiles(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewCostProfileStorage(db, logger)
	ctx := context.Background()

	dir := t.TempDir()
	good := `
[[profile]]
sku = "WIDGET-001"
asin = "B0EXAMPLE01"
cost = 4.00
handling_cost = 1.00
shipping_cost = 1.00
price_floor = 5.00
monitoring_enabled = true

[[profile]]
sku = "WIDGET-002"
asin = "B0EXAMPLE02"
cost = 2.50
price_floor = 4.00
`
	if err := os.WriteFile(filepath.Join(dir, "widgets.toml"), []byte(good), 0644); err != nil {
		t.Fatal(err)
	}

	// Empty SKU is skipped, not fatal
	skipped := `
[[profile]]
asin = "B0NOSKU0001"
cost = 1.00
`
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte(skipped), 0644); err != nil {
		t.Fatal(err)
	}

	// Non-TOML files are ignored
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a profile"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadCostProfilesFromFiles(ctx, storage, dir, logger); err != nil {
		t.Fatalf("Loader failed: %v", err)
	}

	count, err := storage.CountProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 profiles, got %d", count)
	}

	profile, err := storage.GetProfile(ctx, "WIDGET-001")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("Expected WIDGET-001 profile")
	}
	if profile.TotalCost() != 6.00 {
		t.Errorf("Expected total cost 6.00, got %v", profile.TotalCost())
	}
	if !profile.MonitoringEnabled {
		t.Error("Expected monitoring enabled")
	}

	// Re-running the loader upserts by SKU instead of duplicating
	updated := `
[[profile]]
sku = "WIDGET-001"
asin = "B0EXAMPLE01"
cost = 5.00
price_floor = 6.00
`
	if err := os.WriteFile(filepath.Join(dir, "widgets.toml"), []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadCostProfilesFromFiles(ctx, storage, dir, logger); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	count, err = storage.CountProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 profiles after reload, got %d", count)
	}

	profile, err = storage.GetProfile(ctx, "WIDGET-001")
	if err != nil {
		t.Fatal(err)
	}
	if profile.Cost != 5.00 {
		t.Errorf("Expected refreshed cost 5.00, got %v", profile.Cost)
	}
}

func TestLoadCostProfilesMissingDir(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewCostProfileStorage(db, logger)

	// A missing directory is a warning, not an error
	if err := LoadCostProfilesFromFiles(context.Background(), storage, "/no/such/dir", logger); err != nil {
		t.Fatalf("Expected nil error for missing directory, got %v", err)
	}
}
