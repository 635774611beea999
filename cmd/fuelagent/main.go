package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/internal/config"
	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

func main() {
	app := &cli.App{
		Name:  "fuelagent",
		Usage: "Find NSW fuel prices and ask the assistant about them",
		Commands: []*cli.Command{
			pricesCommand(),
			nearbyCommand(),
			stationCommand(),
			chatCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	return cfg, logger, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newFuelClient(c *cli.Context, cfg *config.Config, logger *slog.Logger) (*fuelapi.Client, error) {
	client, err := fuelapi.NewClient(c.Context, cfg.NSWBaseURL, cfg.NSWAuthHeader, cfg.NSWAPIKey, logger)
	if err != nil {
		return nil, err
	}
	client.SetTimeout(cfg.HTTPTimeout)
	return client, nil
}

// newGeocoder prefers Mapbox and falls back to the public Nominatim service
// when no Mapbox token is configured.
func newGeocoder(cfg *config.Config, logger *slog.Logger) geocode.Geocoder {
	if cfg.MapboxToken != "" {
		return geocode.NewMapbox(cfg.MapboxToken, logger)
	}
	logger.Debug("no mapbox token configured, using nominatim")
	return geocode.NewNominatim(logger)
}

func printStations(stations []fuelapi.Station) {
	for i, station := range stations {
		fmt.Printf("%d. %s (%s)\n", i+1, station.Name, station.Brand)
		fmt.Printf("   Address: %s\n", station.Address)
		if station.Distance != nil {
			fmt.Printf("   Distance: %.2f km\n", *station.Distance)
		}
		for _, price := range station.Prices {
			fmt.Printf("   %s: %.1f c/L\n", fuelapi.FuelTypeLabel(price.FuelType), price.Price)
		}
		fmt.Println()
	}
	fmt.Printf("Found %d stations\n", len(stations))
}
