package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/amazon"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
	"github.com/ternarybob/buybox/internal/pricing"
	"github.com/ternarybob/buybox/internal/scanner"
)

// PricingHandler serves ad-hoc live pricing lookups outside any scan job.
// Results are returned to the caller but never persisted.
type PricingHandler struct {
	client   scanner.PricingClient
	profiles interfaces.CostProfileStorage
	calcCfg  pricing.Config
	logger   arbor.ILogger
}

// NewPricingHandler creates a new live pricing handler
func NewPricingHandler(client scanner.PricingClient, profiles interfaces.CostProfileStorage, calcCfg pricing.Config, logger arbor.ILogger) *PricingHandler {
	return &PricingHandler{
		client:   client,
		profiles: profiles,
		calcCfg:  calcCfg,
		logger:   logger,
	}
}

// PreviewHandler fetches competitive pricing for one product right now and
// evaluates profitability against its cost profile.
// GET /api/pricing/preview?asin=B0EXAMPLE01&sku=WIDGET-001
func (h *PricingHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	asin := r.URL.Query().Get("asin")
	sku := r.URL.Query().Get("sku")
	if asin == "" {
		WriteError(w, http.StatusBadRequest, "asin query parameter is required")
		return
	}

	offers, err := h.client.GetCompetitivePricing(ctx, asin)
	if err != nil {
		code := amazon.Classify(err)
		status := http.StatusBadGateway
		if code == models.FailureNotFound {
			status = http.StatusNotFound
		}
		h.logger.Warn().Err(err).Str("asin", asin).Msg("Live pricing lookup failed")
		WriteJSON(w, status, map[string]string{
			"status": "error",
			"code":   string(code),
			"error":  err.Error(),
		})
		return
	}

	var profile *models.CostProfile
	if sku != "" {
		profile, err = h.profiles.GetProfile(ctx, sku)
		if err != nil {
			h.logger.Warn().Err(err).Str("sku", sku).Msg("Cost profile lookup failed for preview")
			profile = nil
		}
	}

	result := pricing.Evaluate(offers.WinningPrice, profile, h.calcCfg)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source":  models.SnapshotSourceLive,
		"offers":  offers,
		"pricing": result,
	})
}
