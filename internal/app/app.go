// -----------------------------------------------------------------------
// Application wiring - storage, pricing client, scan engine, scheduler
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/amazon"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/handlers"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/ternarybob/buybox/internal/pricing"
	"github.com/ternarybob/buybox/internal/scanner"
	"github.com/ternarybob/buybox/internal/storage/badger"
)

// sweepSchedule runs the stale-job sweep every five minutes
const sweepSchedule = "*/5 * * * *"

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager *badger.Manager

	// Pricing API client
	PricingClient *amazon.Client

	// Scan engine and planners
	Engine       *scanner.Engine
	RetryPlanner *scanner.RetryPlanner
	Sweeper      *scanner.Sweeper

	// Scheduler
	cron *cron.Cron

	// HTTP handlers
	ScanHandler    *handlers.ScanHandler
	PricingHandler *handlers.PricingHandler
	StatusHandler  *handlers.StatusHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	// Cost profiles are reference data loaded at startup; re-running the
	// loader refreshes existing entries by SKU
	if err := storageManager.LoadCostProfilesFromFiles(app.ctx, cfg.CostProfiles.Dir); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.CostProfiles.Dir).Msg("Cost profile load failed")
	}

	app.PricingClient = amazon.NewClient(
		cfg.PricingAPI.BaseURL,
		cfg.PricingAPI.APIKey,
		cfg.PricingAPI.SellerID,
		amazon.WithMarketplace(cfg.PricingAPI.Marketplace),
		amazon.WithTimeout(cfg.PricingAPI.RequestTimeoutDuration()),
		amazon.WithRateLimit(cfg.PricingAPI.RateLimit),
		amazon.WithLogger(logger),
	)

	calcCfg := pricing.Config{
		FeeRate:           cfg.Scan.FeeRate,
		MinMarginRequired: cfg.Scan.MinMarginRequired,
	}

	app.Engine = scanner.NewEngine(storageManager, app.PricingClient, calcCfg, logger)
	app.RetryPlanner = scanner.NewRetryPlanner(storageManager, app.Engine, logger)
	app.Sweeper = scanner.NewSweeper(storageManager, cfg.Scan.StaleAfterDuration(), logger)

	app.ScanHandler = handlers.NewScanHandler(app.Engine, app.RetryPlanner, storageManager, cfg, logger)
	app.PricingHandler = handlers.NewPricingHandler(app.PricingClient, storageManager.CostProfileStorage(), calcCfg, logger)
	app.StatusHandler = handlers.NewStatusHandler(storageManager, logger)
	app.WSHandler = handlers.NewWebSocketHandler(storageManager, logger)

	if err := app.initScheduler(); err != nil {
		storageManager.Close()
		return nil, err
	}

	return app, nil
}

// initScheduler registers the cron entries: scheduled catalog scans when
// enabled, and the stale-job sweep always.
func (a *App) initScheduler() error {
	a.cron = cron.New()

	if a.Config.Scan.ScheduledEnabled {
		if _, err := a.cron.AddFunc(a.Config.Scan.Schedule, a.runScheduledScan); err != nil {
			return fmt.Errorf("invalid scan schedule %q: %w", a.Config.Scan.Schedule, err)
		}
		a.Logger.Info().
			Str("schedule", a.Config.Scan.Schedule).
			Msg("Scheduled catalog scans enabled")
	}

	if _, err := a.cron.AddFunc(sweepSchedule, a.runSweep); err != nil {
		return fmt.Errorf("failed to register sweep schedule: %w", err)
	}

	return nil
}

// runScheduledScan starts a full scan over all monitored cost profiles
func (a *App) runScheduledScan() {
	profiles, err := a.StorageManager.CostProfileStorage().ListMonitored(a.ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Scheduled scan aborted: failed to list monitored profiles")
		return
	}
	if len(profiles) == 0 {
		a.Logger.Info().Msg("Scheduled scan skipped: no monitored cost profiles")
		return
	}

	items := make([]scanner.ScanItem, 0, len(profiles))
	for _, profile := range profiles {
		if profile.ASIN == "" {
			a.Logger.Warn().Str("sku", profile.SKU).Msg("Skipping monitored profile without product id")
			continue
		}
		items = append(items, scanner.ScanItem{ASIN: profile.ASIN, SKU: profile.SKU})
	}
	if len(items) == 0 {
		a.Logger.Info().Msg("Scheduled scan skipped: no scannable profiles")
		return
	}

	job, err := a.Engine.StartScan(a.ctx, items, scanner.ScanConfig{
		RatePerSecond: a.Config.Scan.RatePerSecond,
		JitterMs:      a.Config.Scan.JitterMs,
		MaxRetries:    a.Config.Scan.MaxRetries,
		Source:        models.ScanSourceScheduled,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("Failed to start scheduled scan")
		return
	}

	a.Logger.Info().
		Str("job_id", job.ID).
		Int("items", len(items)).
		Msg("Scheduled catalog scan started")
}

// runSweep reconciles jobs stuck in running state
func (a *App) runSweep() {
	swept, err := a.Sweeper.Sweep(a.ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Stale job sweep failed")
		return
	}
	if swept > 0 {
		a.Logger.Warn().Int("swept", swept).Msg("Stale running jobs marked failed")
	}
}

// Start begins background processing (scheduler)
func (a *App) Start() {
	a.cron.Start()
	a.Logger.Info().Msg("Application started")
}

// Stop shuts down background processing and closes storage
func (a *App) Stop() {
	a.Logger.Info().Msg("Stopping application...")

	// Wait for any in-flight cron entry to return
	stopCtx := a.cron.Stop()
	<-stopCtx.Done()

	a.cancelCtx()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to close storage")
	}

	a.Logger.Info().Msg("Application stopped")
}
