package amazon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/buybox/internal/models"
)

const testSellerID = "SELLER-ME"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-key", testSellerID,
		WithMarketplace("amazon.co.uk"),
		WithRateLimit(1000),
	)
	return client, server
}

func TestGetCompetitivePricing_CompetitorHoldsBuyBox(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/pricing/v0/items/B0EXAMPLE01/offers", r.URL.Path)
		assert.Equal(t, "amazon.co.uk", r.URL.Query().Get("marketplace"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"asin": "B0EXAMPLE01",
			"item_title": "Widget",
			"total_offer_count": 3,
			"offers": [
				{"seller_id": "SELLER-A", "seller_name": "Rival Ltd", "is_buy_box_winner": true,
				 "fulfillment_channel": "AMAZON",
				 "listing_price": {"amount": 9.99, "currency_code": "GBP"},
				 "shipping": {"amount": 0, "currency_code": "GBP"}},
				{"seller_id": "SELLER-ME", "is_buy_box_winner": false,
				 "listing_price": {"amount": 10.49, "currency_code": "GBP"},
				 "shipping": {"amount": 0, "currency_code": "GBP"}}
			]
		}`))
	})

	snapshot, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.NoError(t, err)

	assert.Equal(t, "B0EXAMPLE01", snapshot.ASIN)
	assert.Equal(t, "Widget", snapshot.Title)
	assert.InDelta(t, 9.99, snapshot.WinningPrice, 0.001)
	assert.Equal(t, "GBP", snapshot.Currency)
	assert.False(t, snapshot.SellerHoldsBuyBox)
	assert.Equal(t, "SELLER-A", snapshot.CompetitorID)
	assert.Equal(t, "Rival Ltd", snapshot.CompetitorName)
	assert.InDelta(t, 9.99, snapshot.CompetitorPrice, 0.001)
	assert.Equal(t, 3, snapshot.TotalOfferCount)
	assert.Equal(t, "AMAZON", snapshot.FulfillmentChannel)
}

func TestGetCompetitivePricing_SellerHoldsBuyBox(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"asin": "B0EXAMPLE01",
			"offers": [
				{"seller_id": "SELLER-ME", "is_buy_box_winner": true,
				 "listing_price": {"amount": 9.99, "currency_code": "GBP"}}
			]
		}`))
	})

	snapshot, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.NoError(t, err)

	assert.True(t, snapshot.SellerHoldsBuyBox)
	assert.Empty(t, snapshot.CompetitorID)
	assert.Empty(t, snapshot.CompetitorName)
	assert.Equal(t, 0.0, snapshot.CompetitorPrice)
	// Total offer count falls back to the offer list length
	assert.Equal(t, 1, snapshot.TotalOfferCount)
}

func TestGetCompetitivePricing_NoWinnerFlagPicksLowestLanded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"asin": "B0EXAMPLE01",
			"offers": [
				{"seller_id": "SELLER-A",
				 "listing_price": {"amount": 9.50, "currency_code": "GBP"},
				 "shipping": {"amount": 2.99, "currency_code": "GBP"}},
				{"seller_id": "SELLER-B",
				 "listing_price": {"amount": 10.00, "currency_code": "GBP"},
				 "shipping": {"amount": 0, "currency_code": "GBP"}}
			]
		}`))
	})

	snapshot, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.NoError(t, err)

	// SELLER-B lands at 10.00 vs SELLER-A at 12.49
	assert.Equal(t, "SELLER-B", snapshot.CompetitorID)
	assert.InDelta(t, 10.00, snapshot.WinningPrice, 0.001)
}

func TestGetCompetitivePricing_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.Error(t, err)

	var rateLimited *RateLimitError
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 7*time.Second, rateLimited.RetryAfter)
	assert.Equal(t, models.FailureRateLimited, Classify(err))
}

func TestGetCompetitivePricing_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetCompetitivePricing(context.Background(), "B0MISSING99")
	require.Error(t, err)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "B0MISSING99", notFound.ASIN)
	assert.Equal(t, models.FailureNotFound, Classify(err))
}

func TestGetCompetitivePricing_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, models.FailureUnknown, Classify(err))
}

func TestGetCompetitivePricing_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.Error(t, err)
	assert.Equal(t, models.FailureParseError, Classify(err))
}

func TestGetCompetitivePricing_EmptyOfferList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"asin": "B0EXAMPLE01", "offers": []}`))
	})

	_, err := client.GetCompetitivePricing(context.Background(), "B0EXAMPLE01")
	require.Error(t, err)
	assert.Equal(t, models.FailureParseError, Classify(err))
}

func TestClassify_UnknownError(t *testing.T) {
	assert.Equal(t, models.FailureUnknown, Classify(errors.New("connection refused")))
}
