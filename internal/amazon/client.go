package amazon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default transport-level rate limit
	// (requests per second). The scan engine applies its own inter-item
	// pacing on top of this.
	DefaultRateLimit = 5
)

// Client is a competitive pricing API client. One call makes exactly one
// upstream attempt; retry happens at the job level via follow-up scans.
type Client struct {
	baseURL     string
	apiKey      string
	sellerID    string
	marketplace string
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithMarketplace sets the marketplace identifier sent with each query.
func WithMarketplace(marketplace string) ClientOption {
	return func(c *Client) {
		c.marketplace = marketplace
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom transport-level rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewClient creates a new pricing API client. The seller id identifies our
// own offers in the returned listings.
func NewClient(baseURL, apiKey, sellerID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		sellerID: sellerID,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetCompetitivePricing fetches the current offer listing for one product
// id and normalizes it into an OfferSnapshot.
func (c *Client) GetCompetitivePricing(ctx context.Context, asin string) (*OfferSnapshot, error) {
	if asin == "" {
		return nil, &ParseError{Reason: "empty product id"}
	}

	params := url.Values{}
	if c.marketplace != "" {
		params.Set("marketplace", c.marketplace)
	}

	var result offerListingResponse
	if err := c.get(ctx, "/products/pricing/v0/items/"+asin+"/offers", asin, params, &result); err != nil {
		return nil, err
	}

	return c.normalize(asin, &result)
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path, asin string, params url.Values, result interface{}) error {
	// Wait for the transport-level rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}

	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL = reqURL + "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Pricing API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{ASIN: asin}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return &ParseError{Reason: "empty response body"}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &ParseError{Reason: err.Error()}
	}

	return nil
}

// retryAfter parses the Retry-After header, defaulting to one second
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// normalize converts a raw offer listing into the canonical snapshot.
// The seller's own offer being absent is valid: it means the seller is not
// currently competing on the listing.
func (c *Client) normalize(asin string, listing *offerListingResponse) (*OfferSnapshot, error) {
	if len(listing.Offers) == 0 {
		return nil, &ParseError{Reason: "offer listing contains no offers"}
	}

	// The buy-box winner flag is authoritative; fall back to the lowest
	// landed price when upstream omits it
	var winner *rawOffer
	for i := range listing.Offers {
		if listing.Offers[i].IsBuyBoxWinner {
			winner = &listing.Offers[i]
			break
		}
	}
	if winner == nil {
		winner = &listing.Offers[0]
		for i := range listing.Offers[1:] {
			offer := &listing.Offers[i+1]
			if offer.landedPrice() < winner.landedPrice() {
				winner = offer
			}
		}
	}

	totalOfferCount := listing.TotalOfferCount
	if totalOfferCount == 0 {
		totalOfferCount = len(listing.Offers)
	}

	snapshot := &OfferSnapshot{
		ASIN:               asin,
		Title:              listing.ItemTitle,
		WinningPrice:       winner.ListingPrice.Amount,
		Currency:           winner.ListingPrice.CurrencyCode,
		SellerHoldsBuyBox:  c.sellerID != "" && winner.SellerID == c.sellerID,
		TotalOfferCount:    totalOfferCount,
		FulfillmentChannel: winner.FulfillmentChannel,
	}

	if !snapshot.SellerHoldsBuyBox {
		snapshot.CompetitorID = winner.SellerID
		snapshot.CompetitorName = winner.SellerName
		snapshot.CompetitorPrice = winner.ListingPrice.Amount
	}

	return snapshot, nil
}
