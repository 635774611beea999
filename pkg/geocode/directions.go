package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

// Route is a driving route between two points.
type Route struct {
	DistanceKm  float64  `json:"distance_km"`
	DurationMin float64  `json:"duration_min"`
	Steps       []string `json:"steps"`
}

type mapboxManeuver struct {
	Instruction string `json:"instruction"`
}

type mapboxStep struct {
	Maneuver mapboxManeuver `json:"maneuver"`
}

type mapboxLeg struct {
	Steps []mapboxStep `json:"steps"`
}

type mapboxRoute struct {
	Distance float64     `json:"distance"` // meters
	Duration float64     `json:"duration"` // seconds
	Legs     []mapboxLeg `json:"legs"`
}

type mapboxDirectionsResponse struct {
	Routes []mapboxRoute `json:"routes"`
	Code   string        `json:"code"`
}

// Directions fetches a driving route between two coordinate pairs from the
// Mapbox Directions API. A missing route returns ErrNotResolvable.
func (m *Mapbox) Directions(ctx context.Context, from, to fuelapi.Coordinates) (Route, error) {
	if err := from.Validate(); err != nil {
		return Route{}, fmt.Errorf("invalid origin: %w", err)
	}
	if err := to.Validate(); err != nil {
		return Route{}, fmt.Errorf("invalid destination: %w", err)
	}

	// The Mapbox path wants longitude,latitude pairs.
	u := fmt.Sprintf("%s/directions/v5/mapbox/driving/%f,%f;%f,%f?steps=true&overview=false&access_token=%s",
		m.baseURL, from.Longitude, from.Latitude, to.Longitude, to.Latitude,
		url.QueryEscape(m.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Route{}, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Route{}, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		m.log.Warn("directions request failed", "status", resp.StatusCode)
		return Route{}, fmt.Errorf("directions request: status %d: %w", resp.StatusCode, ErrNotResolvable)
	}

	var dir mapboxDirectionsResponse
	if err := json.Unmarshal(body, &dir); err != nil {
		return Route{}, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if len(dir.Routes) == 0 {
		return Route{}, fmt.Errorf("no route found: %w", ErrNotResolvable)
	}

	best := dir.Routes[0]
	route := Route{
		DistanceKm:  best.Distance / 1000,
		DurationMin: best.Duration / 60,
	}
	for _, leg := range best.Legs {
		for _, step := range leg.Steps {
			route.Steps = append(route.Steps, step.Maneuver.Instruction)
		}
	}
	return route, nil
}
