package querylog

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "queries.db")
	s, err := Open(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLog_AggregatesRepeatSearches(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	search := Search{Latitude: -33.8312, Longitude: 151.2001, RadiusKm: 5, FuelType: "U91"}
	for i := 0; i < 3; i++ {
		if err := s.Log(ctx, search); err != nil {
			t.Fatalf("Log() failed: %v", err)
		}
	}

	entries, err := s.Entries(ctx, 0)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 aggregated entry, got %d", len(entries))
	}
	if entries[0].SearchCount != 3 {
		t.Errorf("expected search count 3, got %d", entries[0].SearchCount)
	}

	// Coordinates are rounded to two decimal places before storage.
	if entries[0].Latitude != -33.83 || entries[0].Longitude != 151.2 {
		t.Errorf("expected rounded coordinates (-33.83, 151.2), got (%f, %f)",
			entries[0].Latitude, entries[0].Longitude)
	}
}

func TestLog_SeparatesFuelTypes(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Log(ctx, Search{Latitude: -33.83, Longitude: 151.2, RadiusKm: 5, FuelType: "U91"}); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if err := s.Log(ctx, Search{Latitude: -33.83, Longitude: 151.2, RadiusKm: 5, FuelType: "DL"}); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}

	entries, err := s.Entries(ctx, 0)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected separate entries per fuel type, got %d", len(entries))
	}
}

func TestPopular_ClustersNearbySearches(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Two fuel types at the same spot and one search far away.
	for i := 0; i < 4; i++ {
		if err := s.Log(ctx, Search{Latitude: -33.83, Longitude: 151.20, RadiusKm: 5, FuelType: "U91"}); err != nil {
			t.Fatalf("Log() failed: %v", err)
		}
	}
	if err := s.Log(ctx, Search{Latitude: -33.83, Longitude: 151.20, RadiusKm: 3, FuelType: "DL"}); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if err := s.Log(ctx, Search{Latitude: -32.0, Longitude: 150.0, RadiusKm: 5, FuelType: "U91"}); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}

	popular, err := s.Popular(ctx, 0)
	if err != nil {
		t.Fatalf("Popular() failed: %v", err)
	}
	if len(popular) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(popular))
	}

	// Most popular cluster first, with merged counts.
	if popular[0].SearchCount != 5 {
		t.Errorf("expected merged count 5 for top cluster, got %d", popular[0].SearchCount)
	}
	if popular[1].SearchCount != 1 {
		t.Errorf("expected count 1 for remote cluster, got %d", popular[1].SearchCount)
	}
}

func TestReduceLocationPrecision(t *testing.T) {
	lat, lng := reduceLocationPrecision(-33.86785, 151.20699, 2)
	if lat != -33.87 || lng != 151.21 {
		t.Errorf("reduceLocationPrecision = (%f, %f), expected (-33.87, 151.21)", lat, lng)
	}
}
