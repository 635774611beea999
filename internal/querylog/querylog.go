// Package querylog records fuel price searches in a local sqlite database
// so popular search areas can be reported. Stations and prices themselves
// are never persisted; they live only for the request that produced them.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	// Coordinates are rounded before logging so nearby searches aggregate
	// and exact user locations are not stored.
	precisionDecimalPlaces = 2
	decimalBase            = 10
)

// Storage is a sqlite-backed search log.
type Storage struct {
	db  *sql.DB
	log *slog.Logger
}

// Search is one fuel price search to record.
type Search struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	FuelType  string
}

// Open opens (creating if needed) the search log database.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configurePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Storage{db: db, log: logger}, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func configurePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 10000;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("error setting pragma %q: %w", p, err)
		}
	}
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS search_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		radius REAL NOT NULL,
		fuel_type TEXT NOT NULL DEFAULT '',
		search_count INTEGER NOT NULL DEFAULT 1,
		last_search TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_search_logs_coordinates ON search_logs (latitude, longitude);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating search_logs table: %w", err)
	}
	return nil
}

// Log records a search, incrementing the count for an existing rounded
// location/fuel combination or inserting a new row.
func (s *Storage) Log(ctx context.Context, search Search) error {
	lat, lng := reduceLocationPrecision(search.Latitude, search.Longitude, precisionDecimalPlaces)

	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM search_logs
		WHERE latitude = ? AND longitude = ? AND fuel_type = ?
		LIMIT 1
	`, lat, lng, search.FuelType).Scan(&id)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("error checking for existing location: %w", err)
	}

	if err == sql.ErrNoRows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO search_logs (latitude, longitude, radius, fuel_type)
			VALUES (?, ?, ?, ?)
		`, lat, lng, search.RadiusKm, search.FuelType)
		if err != nil {
			return fmt.Errorf("error logging search: %w", err)
		}
	} else {
		_, err := s.db.ExecContext(ctx, `
			UPDATE search_logs
			SET search_count = search_count + 1, last_search = CURRENT_TIMESTAMP, radius = ?
			WHERE id = ?
		`, search.RadiusKm, id)
		if err != nil {
			return fmt.Errorf("error updating search log: %w", err)
		}
	}

	return nil
}

// Entry is a row in the search log.
type Entry struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	RadiusKm    float64
	FuelType    string
	SearchCount int64
	LastSearch  time.Time
}

// Entries retrieves search log rows ordered by popularity.
// limit of 0 returns all rows.
func (s *Storage) Entries(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, latitude, longitude, radius, fuel_type, search_count, last_search
			  FROM search_logs
			  ORDER BY search_count DESC `
	if limit > 0 {
		query += fmt.Sprintf("LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving search logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Latitude, &e.Longitude, &e.RadiusKm, &e.FuelType, &e.SearchCount, &e.LastSearch); err != nil {
			return nil, fmt.Errorf("error scanning search log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	return entries, nil
}

// PopularLocation is a clustered area of searches with its popularity.
type PopularLocation struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	SearchCount int64   `json:"weight"`
	RadiusKm    float64 `json:"radius"`
}

// Popular clusters nearby search log entries and returns them most popular
// first, at most limit entries (0 for all).
func (s *Storage) Popular(ctx context.Context, limit int) ([]PopularLocation, error) {
	entries, err := s.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}

	const clusterDistance = 0.01 // roughly 1km in degrees

	processed := make(map[int64]bool)
	var popular []PopularLocation

	for i, entry := range entries {
		if processed[entry.ID] {
			continue
		}
		processed[entry.ID] = true

		cluster := PopularLocation{
			Latitude:    entry.Latitude,
			Longitude:   entry.Longitude,
			SearchCount: entry.SearchCount,
			RadiusKm:    entry.RadiusKm,
		}

		for j, other := range entries {
			if i == j || processed[other.ID] {
				continue
			}

			distance := math.Hypot(entry.Latitude-other.Latitude, entry.Longitude-other.Longitude)
			if distance > clusterDistance {
				continue
			}
			processed[other.ID] = true

			total := cluster.SearchCount + other.SearchCount
			cluster.Latitude = (cluster.Latitude*float64(cluster.SearchCount) +
				other.Latitude*float64(other.SearchCount)) / float64(total)
			cluster.Longitude = (cluster.Longitude*float64(cluster.SearchCount) +
				other.Longitude*float64(other.SearchCount)) / float64(total)
			cluster.SearchCount = total
			if other.RadiusKm > cluster.RadiusKm {
				cluster.RadiusKm = other.RadiusKm
			}
		}

		popular = append(popular, cluster)
	}

	sort.Slice(popular, func(i, j int) bool {
		return popular[i].SearchCount > popular[j].SearchCount
	})

	if limit > 0 && len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}
