package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

const (
	DefaultMapboxURL = "https://api.mapbox.com"
	DefaultTimeout   = 15 * time.Second

	cacheExpiry  = 30 * time.Minute
	cacheCleanup = 90 * time.Minute
)

// Mapbox is a forward-geocoding and directions client for the Mapbox API.
// Geocode results are cached in memory; repeated queries for the same
// location do not hit the provider again.
type Mapbox struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	cache       *cache.Cache
	log         *slog.Logger
}

// NewMapbox creates a Mapbox client with default settings.
func NewMapbox(accessToken string, logger *slog.Logger) *Mapbox {
	return NewMapboxWithBaseURL(accessToken, DefaultMapboxURL, logger)
}

// NewMapboxWithBaseURL creates a Mapbox client against a non-default API
// endpoint, mainly for tests.
func NewMapboxWithBaseURL(accessToken, baseURL string, logger *slog.Logger) *Mapbox {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mapbox{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		cache:       cache.New(cacheExpiry, cacheCleanup),
		log:         logger,
	}
}

type mapboxGeometry struct {
	// Coordinates arrive as [longitude, latitude]. See Geocode for the swap.
	Coordinates []float64 `json:"coordinates"`
}

type mapboxContextEntry struct {
	Name string `json:"name"`
}

type mapboxProperties struct {
	Context struct {
		Postcode mapboxContextEntry `json:"postcode"`
	} `json:"context"`
}

type mapboxFeature struct {
	Geometry   mapboxGeometry   `json:"geometry"`
	Properties mapboxProperties `json:"properties"`
}

type mapboxGeocodeResponse struct {
	Features []mapboxFeature `json:"features"`
}

// Geocode resolves an address or postcode to coordinates, filtered to
// Australia with a single result. Misses return ErrNotResolvable.
func (m *Mapbox) Geocode(ctx context.Context, query string) (Result, error) {
	if cached, found := m.cache.Get(query); found {
		m.log.Debug("using cached geocode result", "query", query)
		return cached.(Result), nil
	}

	u := fmt.Sprintf("%s/search/geocode/v6/forward?q=%s&country=AU&limit=1&access_token=%s",
		m.baseURL, url.QueryEscape(query), url.QueryEscape(m.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		m.log.Warn("geocoding request failed", "query", query, "status", resp.StatusCode)
		return Result{}, fmt.Errorf("geocoding %q: status %d: %w", query, resp.StatusCode, ErrNotResolvable)
	}

	var geo mapboxGeocodeResponse
	if err := json.Unmarshal(body, &geo); err != nil {
		return Result{}, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if len(geo.Features) == 0 {
		return Result{}, fmt.Errorf("geocoding %q: no features: %w", query, ErrNotResolvable)
	}

	feature := geo.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		return Result{}, fmt.Errorf("geocoding %q: malformed coordinate pair", query)
	}

	// Mapbox returns [longitude, latitude]; swap to latitude/longitude here.
	// Skipping this swap produces inverted geography.
	coords := fuelapi.Coordinates{
		Latitude:  feature.Geometry.Coordinates[1],
		Longitude: feature.Geometry.Coordinates[0],
	}
	if err := coords.Validate(); err != nil {
		return Result{}, fmt.Errorf("geocoding %q: %w", query, err)
	}

	result := Result{Coordinates: coords, Postcode: feature.Properties.Context.Postcode.Name}
	m.cache.Set(query, result, cache.DefaultExpiration)

	m.log.Debug("geocoded location", "query", query,
		"latitude", coords.Latitude, "longitude", coords.Longitude, "postcode", result.Postcode)
	return result, nil
}
