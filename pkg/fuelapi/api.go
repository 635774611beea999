// Package fuelapi provides types and functions to interact with the NSW
// government FuelCheck API, fetch current fuel prices, and reshape the
// responses into station records with their prices attached.
package fuelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every call to the upstream API.
	DefaultTimeout = 30 * time.Second

	// defaultTokenLifetime is assumed when the token response carries no
	// expires_in field. There is no refresh logic; clients are expected to
	// be short-lived.
	defaultTokenLifetime = 12 * time.Hour

	tokenPath    = "/oauth/client_credential/accesstoken"
	locationPath = "/FuelPriceCheck/v2/fuel/prices/location"
	nearbyPath   = "/FuelPriceCheck/v2/fuel/prices/nearby"
	stationPath  = "/FuelPriceCheck/v2/fuel/prices/station/"
)

// Token is a bearer token for the FuelCheck API. It is immutable after
// acquisition and safe for concurrent reads.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token is present and not yet expired.
func (t Token) Valid() bool {
	return t.AccessToken != "" && time.Now().Before(t.ExpiresAt)
}

// Client talks to the NSW FuelCheck API. The bearer token is acquired once
// at construction and reused for the client's lifetime.
type Client struct {
	baseURL    string
	authHeader string
	apiKey     string
	token      Token
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a FuelCheck client and performs the client-credential
// exchange. A failed exchange returns an *AuthError rather than a client
// with an empty token.
func NewClient(ctx context.Context, baseURL, authHeader, apiKey string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		baseURL:    baseURL,
		authHeader: authHeader,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger,
	}

	token, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}
	c.token = token

	return c, nil
}

// SetTimeout overrides the default timeout on upstream calls.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// AcquireToken exchanges the preshared authorization header for a bearer
// token via the OAuth client-credentials endpoint.
func (c *Client) AcquireToken(ctx context.Context) (Token, error) {
	url := c.baseURL + tokenPath + "?grant_type=client_credentials"

	headers := http.Header{}
	headers.Set("content-type", "application/json")
	headers.Set("authorization", c.authHeader)

	status, body, err := c.doPOST(ctx, url, headers, nil)
	if err != nil {
		return Token{}, fmt.Errorf("error requesting access token: %w", err)
	}
	if status != http.StatusOK {
		return Token{}, &AuthError{StatusCode: status, Body: string(body)}
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Token{}, fmt.Errorf("error unmarshaling token response: %w", err)
	}
	if resp.AccessToken == "" {
		return Token{}, &AuthError{StatusCode: status, Body: "response carried no access_token"}
	}

	lifetime := defaultTokenLifetime
	if secs, err := strconv.Atoi(string(resp.ExpiresIn)); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}

	return Token{AccessToken: resp.AccessToken, ExpiresAt: time.Now().Add(lifetime)}, nil
}

// LocationQuery describes a named-location price search. ReferencePoint is
// optional and only biases result ranking; it does not widen the search.
type LocationQuery struct {
	NamedLocation  string
	FuelType       string
	Brands         []string
	ReferencePoint *Coordinates
}

// NearbyQuery describes a radius price search around a coordinate pair.
type NearbyQuery struct {
	NamedLocation string
	Coordinates   Coordinates
	RadiusKm      float64
	FuelType      string
	Brands        []string
}

type referencePoint struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type locationRequest struct {
	FuelType       string          `json:"fueltype"`
	Brand          []string        `json:"brand"`
	NamedLocation  string          `json:"namedlocation"`
	ReferencePoint *referencePoint `json:"referencepoint,omitempty"`
	SortBy         string          `json:"sortby"`
	SortAscending  string          `json:"sortascending"`
}

type nearbyRequest struct {
	FuelType      string   `json:"fueltype"`
	Brand         []string `json:"brand"`
	NamedLocation string   `json:"namedlocation"`
	Latitude      string   `json:"latitude"`
	Longitude     string   `json:"longitude"`
	Radius        string   `json:"radius"`
	SortBy        string   `json:"sortby"`
	SortAscending string   `json:"sortascending"`
}

// PricesForLocation returns current prices for one fuel type at a named
// location (postcode), sorted by ascending price upstream.
func (c *Client) PricesForLocation(ctx context.Context, q LocationQuery) ([]Station, error) {
	if q.NamedLocation == "" {
		return nil, errors.New("named location is required")
	}
	if !ValidFuelType(q.FuelType) {
		// Upstream behavior for unknown codes is unspecified; pass through.
		c.log.Warn("unrecognised fuel type code", "fueltype", q.FuelType)
	}

	payload := locationRequest{
		FuelType:      q.FuelType,
		Brand:         nonNil(q.Brands),
		NamedLocation: q.NamedLocation,
		SortBy:        "Price",
		SortAscending: "true",
	}
	if q.ReferencePoint != nil {
		if err := q.ReferencePoint.Validate(); err != nil {
			return nil, fmt.Errorf("invalid reference point: %w", err)
		}
		payload.ReferencePoint = &referencePoint{
			Latitude:  formatCoord(q.ReferencePoint.Latitude),
			Longitude: formatCoord(q.ReferencePoint.Longitude),
		}
	}

	return c.priceSearch(ctx, c.baseURL+locationPath, payload)
}

// NearbyPrices returns prices for stations within RadiusKm kilometres of the
// supplied coordinates.
func (c *Client) NearbyPrices(ctx context.Context, q NearbyQuery) ([]Station, error) {
	if q.RadiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %g", q.RadiusKm)
	}
	if err := q.Coordinates.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coordinates: %w", err)
	}
	if !ValidFuelType(q.FuelType) {
		c.log.Warn("unrecognised fuel type code", "fueltype", q.FuelType)
	}

	payload := nearbyRequest{
		FuelType:      q.FuelType,
		Brand:         nonNil(q.Brands),
		NamedLocation: q.NamedLocation,
		Latitude:      formatCoord(q.Coordinates.Latitude),
		Longitude:     formatCoord(q.Coordinates.Longitude),
		Radius:        strconv.FormatFloat(q.RadiusKm, 'f', -1, 64),
		SortBy:        "Price",
		SortAscending: "true",
	}

	return c.priceSearch(ctx, c.baseURL+nearbyPath, payload)
}

// PricesAtStation returns the current prices for a single station by its
// station code. Station identity is already known to the caller, so the
// result is a flat price list rather than a Station.
func (c *Client) PricesAtStation(ctx context.Context, stationCode string) ([]Price, error) {
	if stationCode == "" {
		return nil, errors.New("station code is required")
	}

	url := c.baseURL + stationPath + stationCode + "?state=NSW"
	status, body, err := c.doGET(ctx, url, c.requestHeaders())
	if err != nil {
		return nil, fmt.Errorf("error fetching station prices: %w", err)
	}
	if status != http.StatusOK {
		return nil, &UpstreamError{StatusCode: status, Body: string(body)}
	}

	var resp stationPricesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	prices := make([]Price, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		prices = append(prices, Price{
			StationCode: stationCode,
			FuelType:    p.FuelType,
			Price:       p.Price,
			LastUpdated: p.LastUpdated,
		})
	}
	return prices, nil
}

func (c *Client) priceSearch(ctx context.Context, url string, payload any) ([]Station, error) {
	status, body, err := c.doPOST(ctx, url, c.requestHeaders(), payload)
	if err != nil {
		return nil, fmt.Errorf("error fetching prices: %w", err)
	}
	if status != http.StatusOK {
		return nil, &UpstreamError{StatusCode: status, Body: string(body)}
	}

	var resp pricesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	return normalizeStations(&resp), nil
}

// requestHeaders builds the authenticated header set for price queries.
// Transaction ids are generated per request; upstream treats them as opaque.
func (c *Client) requestHeaders() http.Header {
	headers := http.Header{}
	headers.Set("content-type", "application/json; charset=utf-8")
	headers.Set("authorization", "Bearer "+c.token.AccessToken)
	headers.Set("apikey", c.apiKey)
	headers.Set("transactionid", uuid.NewString())
	headers.Set("requesttimestamp", requestTimestamp(time.Now()))
	return headers
}

// requestTimestamp formats t as dd/mm/yyyy hh:mm:ss AM/PM in UTC, the format
// the FuelCheck API expects in the requesttimestamp header.
func requestTimestamp(t time.Time) string {
	return t.UTC().Format("02/01/2006 03:04:05 PM")
}

func (c *Client) doGET(ctx context.Context, url string, headers http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header = headers
	return c.do(req)
}

func (c *Client) doPOST(ctx context.Context, url string, headers http.Header, payload any) (int, []byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("error marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header = headers
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nonNil guarantees the brand filter marshals as a JSON array, never null.
func nonNil(brands []string) []string {
	if brands == nil {
		return []string{}
	}
	return brands
}
