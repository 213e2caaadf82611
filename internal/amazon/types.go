// Package amazon provides a client for the marketplace competitive pricing
// API. This package centralizes all pricing API interactions and normalizes
// raw offer listings into canonical snapshots.
package amazon

import (
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/buybox/internal/models"
)

// OfferSnapshot is the canonical normalized view of one product's
// competitive offer listing.
type OfferSnapshot struct {
	ASIN               string
	Title              string
	WinningPrice       float64
	Currency           string
	SellerHoldsBuyBox  bool
	CompetitorID       string
	CompetitorName     string
	CompetitorPrice    float64
	TotalOfferCount    int
	FulfillmentChannel string
}

// offerListingResponse is the raw wire shape of the pricing API response
type offerListingResponse struct {
	ASIN            string     `json:"asin"`
	ItemTitle       string     `json:"item_title"`
	TotalOfferCount int        `json:"total_offer_count"`
	Offers          []rawOffer `json:"offers"`
}

type rawOffer struct {
	SellerID           string   `json:"seller_id"`
	SellerName         string   `json:"seller_name"`
	IsBuyBoxWinner     bool     `json:"is_buy_box_winner"`
	FulfillmentChannel string   `json:"fulfillment_channel"`
	ListingPrice       rawMoney `json:"listing_price"`
	Shipping           rawMoney `json:"shipping"`
}

type rawMoney struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
}

// landedPrice is the listing price plus shipping, used to pick a winner
// when the upstream buy-box flag is absent
func (o *rawOffer) landedPrice() float64 {
	return o.ListingPrice.Amount + o.Shipping.Amount
}

// APIError represents an unexpected error from the pricing API
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pricing API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents upstream throttling
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("pricing API rate limit exceeded, retry after %v", e.RetryAfter)
}

// NotFoundError indicates the product id is unknown upstream
type NotFoundError struct {
	ASIN string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found upstream: %s", e.ASIN)
}

// ParseError indicates a response that did not match the expected shape
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pricing API response parse error: %s", e.Reason)
}

// Classify maps a client error to the coarse failure code recorded on
// failure rows
func Classify(err error) models.FailureCode {
	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		return models.FailureRateLimited
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return models.FailureNotFound
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return models.FailureParseError
	}
	return models.FailureUnknown
}
