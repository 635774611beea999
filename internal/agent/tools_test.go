package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

type fakeGeocoder struct {
	result geocode.Result
	err    error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) (geocode.Result, error) {
	return f.result, f.err
}

func newFuelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/client_credential/accesstoken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "tok"}`))
	})
	mux.HandleFunc("/FuelPriceCheck/v2/fuel/prices/location", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"stations": [{"code": "100", "name": "Servo A", "brand": "BP", "address": "1 A St", "location": {"latitude": -33.8, "longitude": 151.2, "distance": 0.4}}],
			"prices": [{"stationcode": "100", "fueltype": "U91", "price": 179.9, "lastupdated": "x"}]
		}`))
	})
	mux.HandleFunc("/FuelPriceCheck/v2/fuel/prices/station/20594", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices": [{"fueltype": "U91", "price": 189.9, "lastupdated": "x"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newFuelToolSet(t *testing.T, geo geocode.Geocoder) *toolSet {
	t.Helper()
	server := newFuelServer(t)
	client, err := fuelapi.NewClient(context.Background(), server.URL, "Basic x", "key", nil)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return fuelToolSet(client, geo)
}

func TestFuelToolSet_Declarations(t *testing.T) {
	tools := newFuelToolSet(t, &fakeGeocoder{})

	want := []string{"geocode_location", "get_prices_for_location", "get_nearby_prices", "get_price_at_station"}
	if len(tools.decls) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools.decls))
	}
	for _, name := range want {
		if _, ok := tools.funcs[name]; !ok {
			t.Errorf("missing tool %q", name)
		}
	}
}

func TestGeocodeTool(t *testing.T) {
	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
		Postcode:    "2065",
	}}
	tools := newFuelToolSet(t, geo)

	out, err := tools.funcs["geocode_location"](context.Background(), json.RawMessage(`{"address": "Crows Nest"}`))
	if err != nil {
		t.Fatalf("geocode_location failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	if result["latitude"] != -33.8 || result["longitude"] != 151.2 || result["postcode"] != "2065" {
		t.Errorf("unexpected geocode output: %s", out)
	}
}

func TestGeocodeTool_Miss(t *testing.T) {
	tools := newFuelToolSet(t, &fakeGeocoder{err: geocode.ErrNotResolvable})

	_, err := tools.funcs["geocode_location"](context.Background(), json.RawMessage(`{"address": "nowhere"}`))
	if err == nil {
		t.Fatal("expected an error for an unresolvable location")
	}
}

func TestPricesForLocationTool(t *testing.T) {
	tools := newFuelToolSet(t, &fakeGeocoder{})

	out, err := tools.funcs["get_prices_for_location"](context.Background(),
		json.RawMessage(`{"postcode": "2065", "fueltype": "U91", "brands": ["BP"]}`))
	if err != nil {
		t.Fatalf("get_prices_for_location failed: %v", err)
	}

	var stations []fuelapi.Station
	if err := json.Unmarshal([]byte(out), &stations); err != nil {
		t.Fatalf("tool output is not a station list: %v", err)
	}
	if len(stations) != 1 || stations[0].StationCode != "100" {
		t.Errorf("unexpected stations: %s", out)
	}
	if len(stations[0].Prices) != 1 || stations[0].Prices[0].Price != 179.9 {
		t.Errorf("unexpected prices: %s", out)
	}
}

func TestPriceAtStationTool(t *testing.T) {
	tools := newFuelToolSet(t, &fakeGeocoder{})

	out, err := tools.funcs["get_price_at_station"](context.Background(),
		json.RawMessage(`{"station_code": "20594"}`))
	if err != nil {
		t.Fatalf("get_price_at_station failed: %v", err)
	}
	if !strings.Contains(out, `"station_code":"20594"`) {
		t.Errorf("expected station code in output, got %s", out)
	}
}

func TestDirectionsToolSet_GeocodesBothEnds(t *testing.T) {
	mapboxServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "Ok", "routes": [{"distance": 5000, "duration": 600, "legs": []}]}`))
	}))
	t.Cleanup(mapboxServer.Close)

	mapbox := geocode.NewMapboxWithBaseURL("test-token", mapboxServer.URL, nil)
	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
	}}
	tools := directionsToolSet(mapbox, geo)

	out, err := tools.funcs["get_directions"](context.Background(),
		json.RawMessage(`{"origin": "Crows Nest", "destination": "Sydney"}`))
	if err != nil {
		t.Fatalf("get_directions failed: %v", err)
	}

	var route geocode.Route
	if err := json.Unmarshal([]byte(out), &route); err != nil {
		t.Fatalf("tool output is not a route: %v", err)
	}
	if route.DistanceKm != 5 || route.DurationMin != 10 {
		t.Errorf("unexpected route: %s", out)
	}
}
