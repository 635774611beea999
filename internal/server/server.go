// Package server exposes the fuel price assistant over HTTP as a JSON API,
// consumed by the CLI and any frontend.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/sunmkim/nsw-fuel-agent/internal/agent"
	"github.com/sunmkim/nsw-fuel-agent/internal/querylog"
	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

const (
	DefaultRadiusKm   = 5.0
	DefaultFuelType   = "U91"
	rateLimitRequests = 20
)

// Server holds the dependencies for the HTTP handlers. The orchestrator and
// query log are optional; their endpoints degrade when absent.
type Server struct {
	fuel         *fuelapi.Client
	geo          geocode.Geocoder
	orchestrator *agent.Orchestrator
	queries      *querylog.Storage
	log          *slog.Logger
}

// New creates a Server.
func New(fuel *fuelapi.Client, geo geocode.Geocoder, orchestrator *agent.Orchestrator, queries *querylog.Storage, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		fuel:         fuel,
		geo:          geo,
		orchestrator: orchestrator,
		queries:      queries,
		log:          logger,
	}
}

// NewLogger builds the request logger used by Router and the rest of the
// process.
func NewLogger(level slog.Level) *httplog.Logger {
	return httplog.NewLogger("nsw-fuel-agent", httplog.Options{
		JSON:            false,
		LogLevel:        level,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})
}

// Router assembles the HTTP routes and middleware.
func (s *Server) Router(logger *httplog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	if logger != nil {
		r.Use(httplog.RequestLogger(logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(rateLimitRequests, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Get("/station/{code}", s.handleStation)
	r.Get("/popular", s.handlePopular)
	r.Get("/ask", s.handleAsk)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	Location string              `json:"location,omitempty"`
	Postcode string              `json:"postcode,omitempty"`
	Center   fuelapi.Coordinates `json:"center"`
	RadiusKm float64             `json:"radius_km"`
	FuelType string              `json:"fuel_type"`
	Stations []fuelapi.Station   `json:"stations"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	location := query.Get("location")
	fuelType := query.Get("fuel")
	if fuelType == "" {
		fuelType = DefaultFuelType
	}
	if !fuelapi.ValidFuelType(fuelType) {
		respondError(w, http.StatusBadRequest, "unknown fuel type "+fuelType)
		return
	}

	radius := DefaultRadiusKm
	if radiusStr := query.Get("radius"); radiusStr != "" {
		parsed, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		radius = parsed
	}

	var brands []string
	if brandsStr := query.Get("brands"); brandsStr != "" {
		brands = strings.Split(brandsStr, ",")
	}

	var center fuelapi.Coordinates
	var postcode string
	switch {
	case location != "":
		result, err := s.geo.Geocode(r.Context(), location)
		if err != nil {
			if errors.Is(err, geocode.ErrNotResolvable) {
				respondError(w, http.StatusNotFound, "could not resolve location "+location)
				return
			}
			s.log.Error("geocoding failed", "location", location, "error", err)
			respondError(w, http.StatusBadGateway, "geocoding service unavailable")
			return
		}
		center = result.Coordinates
		postcode = result.Postcode
	case query.Get("lat") != "" && query.Get("lng") != "":
		lat, err1 := strconv.ParseFloat(query.Get("lat"), 64)
		lng, err2 := strconv.ParseFloat(query.Get("lng"), 64)
		if err1 != nil || err2 != nil {
			respondError(w, http.StatusBadRequest, "invalid latitude or longitude value")
			return
		}
		center = fuelapi.Coordinates{Latitude: lat, Longitude: lng}
		if err := center.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "location or lat/lng parameters are required")
		return
	}

	stations, err := s.fuel.NearbyPrices(r.Context(), fuelapi.NearbyQuery{
		NamedLocation: postcode,
		Coordinates:   center,
		RadiusKm:      radius,
		FuelType:      fuelType,
		Brands:        brands,
	})
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	fillDistances(stations, center)

	if s.queries != nil {
		logErr := s.queries.Log(r.Context(), querylog.Search{
			Latitude:  center.Latitude,
			Longitude: center.Longitude,
			RadiusKm:  radius,
			FuelType:  fuelType,
		})
		if logErr != nil {
			// Logging failures never fail the search.
			s.log.Error("failed to log search", "error", logErr)
		}
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Location: location,
		Postcode: postcode,
		Center:   center,
		RadiusKm: radius,
		FuelType: fuelType,
		Stations: stations,
	})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	prices, err := s.fuel.PricesAtStation(r.Context(), code)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"station_code": code,
		"prices":       prices,
	})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		respondError(w, http.StatusServiceUnavailable, "search logging is not enabled")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	popular, err := s.queries.Popular(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to load popular locations", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load popular locations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"locations": popular})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	answer, err := s.orchestrator.Ask(r.Context(), q)
	if err != nil {
		s.log.Error("assistant query failed", "error", err)
		respondError(w, http.StatusBadGateway, "the assistant could not answer; please try again")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) respondUpstreamError(w http.ResponseWriter, err error) {
	var upErr *fuelapi.UpstreamError
	if errors.As(err, &upErr) {
		s.log.Error("upstream request failed", "status", upErr.StatusCode)
		respondError(w, http.StatusBadGateway, "fuel price service returned status "+strconv.Itoa(upErr.StatusCode))
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

// fillDistances computes a station's distance from the query point when the
// upstream response omitted it.
func fillDistances(stations []fuelapi.Station, center fuelapi.Coordinates) {
	for i := range stations {
		if stations[i].Distance != nil {
			continue
		}
		meters := gpx.Distance2D(center.Latitude, center.Longitude,
			stations[i].Coordinates.Latitude, stations[i].Coordinates.Longitude, true)
		km := meters / 1000
		stations[i].Distance = &km
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing left to do.
		return
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
