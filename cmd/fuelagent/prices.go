package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

func pricesCommand() *cli.Command {
	return &cli.Command{
		Name:  "prices",
		Usage: "List fuel prices for a suburb or postcode",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "location",
				Usage:    "Suburb, address or postcode to search",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type code (U91, P95, DL, ...)",
				Value: "U91",
			},
			&cli.StringSliceFlag{
				Name:  "brand",
				Usage: "Limit results to a brand (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			fuelType := c.String("fuel")
			if !fuelapi.ValidFuelType(fuelType) {
				return fmt.Errorf("unknown fuel type %q", fuelType)
			}

			client, err := newFuelClient(c, cfg, logger)
			if err != nil {
				return err
			}

			location := c.String("location")
			query := fuelapi.LocationQuery{
				NamedLocation: location,
				FuelType:      fuelType,
				Brands:        c.StringSlice("brand"),
			}

			// A geocode hit narrows the search to the postcode and gives the
			// API a reference point for distance sorting. A miss is not fatal;
			// the raw location text still works for suburbs and postcodes.
			geo := newGeocoder(cfg, logger)
			if result, err := geo.Geocode(c.Context, location); err == nil {
				if result.Postcode != "" {
					query.NamedLocation = result.Postcode
				}
				coords := result.Coordinates
				query.ReferencePoint = &coords
			} else {
				logger.Debug("geocoding failed, using raw location", "location", location, "error", err)
			}

			stations, err := client.PricesForLocation(c.Context, query)
			if err != nil {
				return err
			}

			printStations(stations)
			return nil
		},
	}
}
