package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sunmkim/nsw-fuel-agent/internal/querylog"
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

func newFuelUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/client_credential/accesstoken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "tok", "expires_in": "43199"}`))
	})
	mux.HandleFunc("/FuelPriceCheck/v2/fuel/prices/nearby", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"stations": [
				{"code": "100", "name": "Servo A", "brand": "BP", "address": "1 A St", "location": {"latitude": -33.81, "longitude": 151.21, "distance": 0.4}},
				{"code": "200", "name": "Servo B", "brand": "Ampol", "address": "2 B St", "location": {"latitude": -33.82, "longitude": 151.22}}
			],
			"prices": [
				{"stationcode": "100", "fueltype": "U91", "price": 179.9, "lastupdated": "x"},
				{"stationcode": "200", "fueltype": "U91", "price": 183.5, "lastupdated": "x"}
			]
		}`))
	})
	mux.HandleFunc("/FuelPriceCheck/v2/fuel/prices/station/20594", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices": [{"fueltype": "U91", "price": 189.9, "lastupdated": "x"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, geo geocode.Geocoder, queries *querylog.Storage) *httptest.Server {
	t.Helper()
	upstream := newFuelUpstream(t)
	client, err := fuelapi.NewClient(context.Background(), upstream.URL, "Basic x", "key", nil)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	srv := New(client, geo, nil, queries, nil)
	ts := httptest.NewServer(srv.Router(nil))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected status %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: decoding response: %v", url, err)
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)

	var body map[string]string
	getJSON(t, ts.URL+"/healthz", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected health response: %v", body)
	}
}

func TestSearchByLocation(t *testing.T) {
	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
		Postcode:    "2065",
	}}
	ts := newTestServer(t, geo, nil)

	var body searchResponse
	getJSON(t, ts.URL+"/search?location=Crows+Nest&fuel=U91&radius=5", http.StatusOK, &body)

	if body.Postcode != "2065" {
		t.Errorf("expected postcode 2065, got %q", body.Postcode)
	}
	if len(body.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(body.Stations))
	}
	if body.Stations[0].StationCode != "100" || body.Stations[1].StationCode != "200" {
		t.Errorf("unexpected station order: %v", body.Stations)
	}
}

func TestSearchFillsMissingDistances(t *testing.T) {
	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
	}}
	ts := newTestServer(t, geo, nil)

	var body searchResponse
	getJSON(t, ts.URL+"/search?location=somewhere", http.StatusOK, &body)

	for _, station := range body.Stations {
		if station.Distance == nil {
			t.Errorf("station %s has no distance", station.StationCode)
			continue
		}
		if *station.Distance <= 0 || *station.Distance > 10 {
			t.Errorf("station %s has implausible distance %f km", station.StationCode, *station.Distance)
		}
	}
	// Station 100 came with a distance from upstream; it must not be recomputed.
	if *body.Stations[0].Distance != 0.4 {
		t.Errorf("expected upstream distance 0.4 to be kept, got %f", *body.Stations[0].Distance)
	}
}

func TestSearchByCoordinates(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{err: geocode.ErrNotResolvable}, nil)

	var body searchResponse
	getJSON(t, ts.URL+"/search?lat=-33.8&lng=151.2", http.StatusOK, &body)
	if len(body.Stations) != 2 {
		t.Errorf("expected 2 stations, got %d", len(body.Stations))
	}
	if body.FuelType != "U91" {
		t.Errorf("expected default fuel type U91, got %q", body.FuelType)
	}
}

func TestSearchGeocodeMiss(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{err: geocode.ErrNotResolvable}, nil)

	var body map[string]string
	getJSON(t, ts.URL+"/search?location=nowhere", http.StatusNotFound, &body)
	if body["error"] == "" {
		t.Error("expected an error message in the response")
	}
}

func TestSearchValidation(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"no location or coordinates", "/search"},
		{"unknown fuel type", "/search?lat=-33.8&lng=151.2&fuel=ROCKET"},
		{"zero radius", "/search?lat=-33.8&lng=151.2&radius=0"},
		{"latitude out of range", "/search?lat=-133.8&lng=151.2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			getJSON(t, ts.URL+tc.url, http.StatusBadRequest, nil)
		})
	}
}

func TestSearchLogsQueries(t *testing.T) {
	queries, err := querylog.Open(context.Background(), filepath.Join(t.TempDir(), "queries.db"), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer queries.Close()

	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
	}}
	ts := newTestServer(t, geo, queries)

	getJSON(t, ts.URL+"/search?location=Crows+Nest", http.StatusOK, nil)
	getJSON(t, ts.URL+"/search?location=Crows+Nest", http.StatusOK, nil)

	entries, err := queries.Entries(context.Background(), 10)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 aggregated entry, got %d", len(entries))
	}
	if entries[0].SearchCount != 2 {
		t.Errorf("expected search count 2, got %d", entries[0].SearchCount)
	}
}

func TestStationPrices(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)

	var body struct {
		StationCode string          `json:"station_code"`
		Prices      []fuelapi.Price `json:"prices"`
	}
	getJSON(t, ts.URL+"/station/20594", http.StatusOK, &body)

	if body.StationCode != "20594" {
		t.Errorf("expected station code 20594, got %q", body.StationCode)
	}
	if len(body.Prices) != 1 || body.Prices[0].Price != 189.9 {
		t.Errorf("unexpected prices: %v", body.Prices)
	}
}

func TestStationUpstreamError(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)

	// 99999 is not served by the upstream mux; it 404s.
	getJSON(t, ts.URL+"/station/99999", http.StatusBadGateway, nil)
}

func TestPopular(t *testing.T) {
	queries, err := querylog.Open(context.Background(), filepath.Join(t.TempDir(), "queries.db"), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer queries.Close()

	geo := &fakeGeocoder{result: geocode.Result{
		Coordinates: fuelapi.Coordinates{Latitude: -33.8, Longitude: 151.2},
	}}
	ts := newTestServer(t, geo, queries)
	getJSON(t, ts.URL+"/search?location=Crows+Nest", http.StatusOK, nil)

	var body struct {
		Locations []querylog.PopularLocation `json:"locations"`
	}
	getJSON(t, ts.URL+"/popular", http.StatusOK, &body)
	if len(body.Locations) != 1 {
		t.Fatalf("expected 1 popular location, got %d", len(body.Locations))
	}
	if body.Locations[0].SearchCount != 1 {
		t.Errorf("unexpected weight: %v", body.Locations[0])
	}
}

func TestPopularWithoutQueryLog(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)
	getJSON(t, ts.URL+"/popular", http.StatusServiceUnavailable, nil)
}

func TestAskWithoutAssistant(t *testing.T) {
	ts := newTestServer(t, &fakeGeocoder{}, nil)
	getJSON(t, ts.URL+"/ask?q=where+is+cheap+fuel", http.StatusServiceUnavailable, nil)
}
