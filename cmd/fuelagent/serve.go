package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/sunmkim/nsw-fuel-agent/internal/agent"
	"github.com/sunmkim/nsw-fuel-agent/internal/config"
	"github.com/sunmkim/nsw-fuel-agent/internal/querylog"
	"github.com/sunmkim/nsw-fuel-agent/internal/server"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "HTTP server port",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Search log database file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if port := c.String("port"); port != "" {
				cfg.Port = port
			}
			if db := c.String("db"); db != "" {
				cfg.DBPath = db
			}

			httpLogger := server.NewLogger(parseLogLevel(cfg.LogLevel))
			logger := httpLogger.Logger

			client, err := newFuelClient(c, cfg, logger)
			if err != nil {
				return err
			}

			geo := newGeocoder(cfg, logger)

			queries, err := querylog.Open(c.Context, cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("error opening search log: %w", err)
			}
			defer queries.Close()

			var orchestrator *agent.Orchestrator
			if cfg.GeminiAPIKey != "" {
				var mapbox *geocode.Mapbox
				if cfg.MapboxToken != "" {
					mapbox = geocode.NewMapbox(cfg.MapboxToken, logger)
				}
				orchestrator, err = agent.New(c.Context, cfg.GeminiAPIKey, client, geo, mapbox, logger)
				if err != nil {
					return fmt.Errorf("error creating assistant: %w", err)
				}
				defer orchestrator.Close()
			} else {
				logger.Info("GEMINI_API_KEY not set, /ask endpoint disabled")
			}

			srv := server.New(client, geo, orchestrator, queries, logger)

			addr := ":" + cfg.Port
			logger.Info("starting server", "addr", addr)
			return http.ListenAndServe(addr, srv.Router(httpLogger))
		},
	}
}
