package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/amazon"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/ternarybob/buybox/internal/pricing"
	"github.com/ternarybob/buybox/internal/storage/badger"
)

// fakeClient backs the engine with a per-ASIN canned response
type fakeClient struct {
	fn func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error)
}

func (f *fakeClient) GetCompetitivePricing(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
	return f.fn(ctx, asin)
}

func goodOffer(asin string) *amazon.OfferSnapshot {
	return &amazon.OfferSnapshot{
		ASIN:            asin,
		Title:           "Widget",
		WinningPrice:    10.00,
		Currency:        "GBP",
		CompetitorID:    "SELLER-A",
		CompetitorPrice: 10.00,
		TotalOfferCount: 2,
	}
}

func newTestEngine(t *testing.T, client PricingClient) (*Engine, *badger.Manager, *[]time.Duration) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	engine := NewEngine(manager, client, pricing.DefaultConfig(), logger)

	sleeps := &[]time.Duration{}
	engine.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}

	return engine, manager, sleeps
}

func saveTestProfile(t *testing.T, manager *badger.Manager, sku string) {
	t.Helper()
	err := manager.CostProfileStorage().SaveProfile(context.Background(), &models.CostProfile{
		SKU:          sku,
		Cost:         4.00,
		HandlingCost: 1.00,
		ShippingCost: 1.00,
		PriceFloor:   5.00,
	})
	require.NoError(t, err)
}

func waitForTerminal(t *testing.T, manager *badger.Manager, jobID string) *models.ScanJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := manager.JobStorage().GetJob(context.Background(), jobID)
		require.NoError(t, err)
		if job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s never reached a terminal state", jobID)
	return nil
}

func TestStartScan_EmptyItemList(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
		t.Fatal("Client must not be called for an empty scan")
		return nil, nil
	}}
	engine, manager, _ := newTestEngine(t, client)

	job, err := engine.StartScan(context.Background(), nil, ScanConfig{RatePerSecond: 2, MaxRetries: 3})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, job.Status)

	final := waitForTerminal(t, manager, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, 0, final.TotalCount)
	assert.Equal(t, 0, final.SuccessCount)
	assert.Equal(t, 0, final.FailureCount)
}

func TestStartScan_AllItemsSucceed(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
		return goodOffer(asin), nil
	}}
	engine, manager, _ := newTestEngine(t, client)
	saveTestProfile(t, manager, "WIDGET-001")
	saveTestProfile(t, manager, "WIDGET-002")

	items := []ScanItem{
		{ASIN: "B0EXAMPLE01", SKU: "WIDGET-001"},
		{ASIN: "B0EXAMPLE02", SKU: "WIDGET-002"},
	}
	job, err := engine.StartScan(context.Background(), items, ScanConfig{RatePerSecond: 100, MaxRetries: 3})
	require.NoError(t, err)

	final := waitForTerminal(t, manager, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, 2, final.SuccessCount)
	assert.Equal(t, 0, final.FailureCount)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, models.ScanSourceManual, final.Source)

	snapshots, err := manager.SnapshotStorage().ListSnapshotsByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "B0EXAMPLE01", snapshots[0].ASIN)
	assert.Equal(t, "B0EXAMPLE02", snapshots[1].ASIN)
	assert.Equal(t, models.SnapshotSourceBatch, snapshots[0].Source)
	// P=10, costs 6, fee 1.50 -> margin 2.50, ~41.7%, floor 5 -> opportunity
	assert.InDelta(t, 2.50, snapshots[0].Margin, 0.001)
	assert.True(t, snapshots[0].Opportunity)
	assert.False(t, snapshots[0].ProfileMissing)
}

func TestStartScan_ItemFailuresDoNotFailJob(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
		switch asin {
		case "B0RATELIMIT":
			return nil, &amazon.RateLimitError{RetryAfter: time.Second}
		case "B0MISSING99":
			return nil, &amazon.NotFoundError{ASIN: asin}
		default:
			return goodOffer(asin), nil
		}
	}}
	engine, manager, _ := newTestEngine(t, client)
	saveTestProfile(t, manager, "WIDGET-001")

	items := []ScanItem{
		{ASIN: "B0RATELIMIT", SKU: "SKU-RL"},
		{ASIN: "B0EXAMPLE01", SKU: "WIDGET-001"},
		{ASIN: "B0MISSING99", SKU: "SKU-NF"},
	}
	job, err := engine.StartScan(context.Background(), items, ScanConfig{RatePerSecond: 100, MaxRetries: 3})
	require.NoError(t, err)

	final := waitForTerminal(t, manager, job.ID)

	// Item failures still end in completed, never failed
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, 1, final.SuccessCount)
	assert.Equal(t, 2, final.FailureCount)
	assert.Empty(t, final.Notes)

	failures, err := manager.FailureStorage().ListFailuresByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, models.FailureRateLimited, failures[0].Code)
	assert.Equal(t, "B0RATELIMIT", failures[0].ASIN)
	assert.Equal(t, 0, failures[0].Seq)
	assert.Equal(t, 3, failures[0].Attempt)
	assert.Equal(t, models.FailureNotFound, failures[1].Code)
	assert.Equal(t, 2, failures[1].Seq)
}

func TestStartScan_MissingProfileFlagged(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
		return goodOffer(asin), nil
	}}
	engine, manager, _ := newTestEngine(t, client)

	items := []ScanItem{{ASIN: "B0EXAMPLE01", SKU: "NO-PROFILE"}}
	job, err := engine.StartScan(context.Background(), items, ScanConfig{RatePerSecond: 100, MaxRetries: 3})
	require.NoError(t, err)

	final := waitForTerminal(t, manager, job.ID)
	assert.Equal(t, 1, final.SuccessCount)

	snapshots, err := manager.SnapshotStorage().ListSnapshotsByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].ProfileMissing)
	assert.False(t, snapshots[0].Opportunity)
	assert.Equal(t, 0.0, snapshots[0].Margin)
	// The observed price is still recorded
	assert.InDelta(t, 10.00, snapshots[0].WinningPrice, 0.001)
}

func TestStartScan_PacingBetweenItemsOnly(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, asin string) (*amazon.OfferSnapshot, error) {
		return goodOffer(asin), nil
	}}
	engine, manager, sleeps := newTestEngine(t, client)

	items := make([]ScanItem, 10)
	for i := range items {
		items[i] = ScanItem{ASIN: "B0EXAMPLE01", SKU: "NO-PROFILE"}
	}

	job, err := engine.StartScan(context.Background(), items, ScanConfig{RatePerSecond: 2, JitterMs: 0, MaxRetries: 3})
	require.NoError(t, err)
	waitForTerminal(t, manager, job.ID)

	// Nine pauses for ten items: no pause after the last
	require.Len(t, *sleeps, 9)
	for _, d := range *sleeps {
		assert.Equal(t, 500*time.Millisecond, d)
	}
}

func TestPacingDelayBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := pacingDelay(2, 250)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 750*time.Millisecond)
	}

	// Zero rate means no base interval
	assert.Equal(t, time.Duration(0), pacingDelay(0, 0))
}
