package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
)

func stationCommand() *cli.Command {
	return &cli.Command{
		Name:      "station",
		Usage:     "Show all fuel prices at a single station",
		ArgsUsage: "<station-code>",
		Action: func(c *cli.Context) error {
			code := c.Args().First()
			if code == "" {
				return errors.New("station code is required")
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			client, err := newFuelClient(c, cfg, logger)
			if err != nil {
				return err
			}

			prices, err := client.PricesAtStation(c.Context, code)
			if err != nil {
				return err
			}

			fmt.Printf("Station %s:\n", code)
			for _, price := range prices {
				fmt.Printf("  %s: %.1f c/L (updated %s)\n",
					fuelapi.FuelTypeLabel(price.FuelType), price.Price, price.LastUpdated)
			}
			return nil
		},
	}
}
