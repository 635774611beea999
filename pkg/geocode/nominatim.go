package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/muesli/gominatim"
	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

const nominatimServer = "https://nominatim.openstreetmap.org/"

// Nominatim is a fallback geocoder backed by the public Nominatim service.
// It returns no postcode; callers that need one should prefer Mapbox.
type Nominatim struct {
	log *slog.Logger
}

// NewNominatim creates a Nominatim-backed geocoder.
func NewNominatim(logger *slog.Logger) *Nominatim {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gominatim.SetServer(nominatimServer)
	return &Nominatim{log: logger}
}

// Geocode resolves a free-text location. The query is scoped to NSW since
// Nominatim has no country filter in this query form.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Result, error) {
	qry := gominatim.SearchQuery{
		Q: query + ", NSW, Australia",
	}

	results, err := qry.Get()
	if err != nil {
		return Result{}, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return Result{}, fmt.Errorf("geocoding %q: no results: %w", query, ErrNotResolvable)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("error parsing longitude: %w", err)
	}

	coords := fuelapi.Coordinates{Latitude: lat, Longitude: lon}
	if err := coords.Validate(); err != nil {
		return Result{}, fmt.Errorf("geocoding %q: %w", query, err)
	}

	n.log.Debug("geocoded location via nominatim", "query", query,
		"display_name", results[0].DisplayName)
	return Result{Coordinates: coords}, nil
}
