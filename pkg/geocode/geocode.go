// Package geocode resolves free-text addresses and postcodes to coordinates,
// and fetches driving directions. Mapbox is the primary provider; a
// Nominatim fallback is available when no Mapbox token is configured.
package geocode

import (
	"context"
	"errors"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

// ErrNotResolvable is returned when the provider finds no match for a query.
// Callers should treat it as recoverable and ask the user to clarify.
var ErrNotResolvable = errors.New("location not resolvable")

// Result is a resolved location. Postcode may be empty when the provider
// does not return one.
type Result struct {
	Coordinates fuelapi.Coordinates
	Postcode    string
}

// Geocoder converts an address or postcode into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Result, error)
}
