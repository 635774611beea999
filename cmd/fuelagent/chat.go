package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/internal/agent"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Ask the fuel price assistant questions interactively",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.GeminiAPIKey == "" {
				return errors.New("GEMINI_API_KEY is required for chat")
			}

			client, err := newFuelClient(c, cfg, logger)
			if err != nil {
				return err
			}

			geo := newGeocoder(cfg, logger)
			var mapbox *geocode.Mapbox
			if cfg.MapboxToken != "" {
				mapbox = geocode.NewMapbox(cfg.MapboxToken, logger)
			}

			orchestrator, err := agent.New(c.Context, cfg.GeminiAPIKey, client, geo, mapbox, logger)
			if err != nil {
				return err
			}
			defer orchestrator.Close()

			fmt.Println("NSW fuel price assistant. Type 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				answer, err := orchestrator.Ask(c.Context, question)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					continue
				}
				fmt.Println(answer)
			}
			return scanner.Err()
		},
	}
}
