package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "List fuel prices within a radius of a point",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Location to search around",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the search point",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the search point",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   5.0,
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

			query := fuelapi.NearbyQuery{
				RadiusKm: c.Float64("radius"),
				FuelType: fuelType,
				Brands:   c.StringSlice("brand"),
			}

			if loc := c.String("location"); loc != "" {
				geo := newGeocoder(cfg, logger)
				result, err := geo.Geocode(c.Context, loc)
				if err != nil {
					return err
				}
				query.Coordinates = result.Coordinates
				query.NamedLocation = result.Postcode
			} else {
				lat, lng := c.Float64("lat"), c.Float64("long")
				if lat == 0 && lng == 0 {
					return errors.New("location or latitude and longitude are required")
				}
				query.Coordinates = fuelapi.Coordinates{Latitude: lat, Longitude: lng}
			}

			client, err := newFuelClient(c, cfg, logger)
			if err != nil {
				return err
			}

			stations, err := client.NearbyPrices(c.Context, query)
			if err != nil {
				return err
			}

			printStations(stations)
			return nil
		},
	}
}
