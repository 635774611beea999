package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

// toolFunc executes one registered tool. Arguments arrive as the JSON the
// model produced for the declared schema.
type toolFunc func(ctx context.Context, args json.RawMessage) (string, error)

type toolSet struct {
	decls []*genai.FunctionDeclaration
	funcs map[string]toolFunc
}

func newToolSet() *toolSet {
	return &toolSet{funcs: make(map[string]toolFunc)}
}

func (t *toolSet) add(decl *genai.FunctionDeclaration, fn toolFunc) {
	t.decls = append(t.decls, decl)
	t.funcs[decl.Name] = fn
}

func (t *toolSet) genaiTools() []*genai.Tool {
	return []*genai.Tool{{FunctionDeclarations: t.decls}}
}

func geocodeDecl() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "geocode_location",
		Description: "Convert a NSW address or postcode into latitude, longitude and postcode",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"address": {Type: genai.TypeString, Description: "NSW address or postcode"},
			},
			Required: []string{"address"},
		},
	}
}

func geocodeTool(geo geocode.Geocoder) toolFunc {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}

		result, err := geo.Geocode(ctx, in.Address)
		if err != nil {
			return "", err
		}
		return marshalResult(map[string]any{
			"latitude":  result.Coordinates.Latitude,
			"longitude": result.Coordinates.Longitude,
			"postcode":  result.Postcode,
		})
	}
}

// fuelToolSet wires the fuel price assistant's tools to the FuelCheck client
// and the geocoder.
func fuelToolSet(client *fuelapi.Client, geo geocode.Geocoder) *toolSet {
	tools := newToolSet()
	tools.add(geocodeDecl(), geocodeTool(geo))

	brandsSchema := &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: "Fuel brand names to filter by, e.g. BP, Shell; empty for all brands",
	}
	fuelTypeSchema := &genai.Schema{
		Type:        genai.TypeString,
		Description: "Fuel type code, one of E10, U91, E85, P95, P98, DL, PDL, B20, LPG, CNG, EV",
	}

	tools.add(&genai.FunctionDeclaration{
		Name:        "get_prices_for_location",
		Description: "Current fuel prices for one fuel type at a named NSW location (postcode), sorted by ascending price",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"postcode":  {Type: genai.TypeString, Description: "NSW postcode, e.g. 2065"},
				"fueltype":  fuelTypeSchema,
				"brands":    brandsSchema,
				"latitude":  {Type: genai.TypeNumber, Description: "Optional reference latitude to bias ranking"},
				"longitude": {Type: genai.TypeNumber, Description: "Optional reference longitude to bias ranking"},
			},
			Required: []string{"postcode", "fueltype"},
		},
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Postcode  string   `json:"postcode"`
			FuelType  string   `json:"fueltype"`
			Brands    []string `json:"brands"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}

		query := fuelapi.LocationQuery{
			NamedLocation: in.Postcode,
			FuelType:      in.FuelType,
			Brands:        in.Brands,
		}
		if in.Latitude != nil && in.Longitude != nil {
			query.ReferencePoint = &fuelapi.Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}
		}

		stations, err := client.PricesForLocation(ctx, query)
		if err != nil {
			return "", err
		}
		return marshalResult(stations)
	})

	tools.add(&genai.FunctionDeclaration{
		Name:        "get_nearby_prices",
		Description: "Fuel prices at stations within a radius (km) of a coordinate pair, sorted by ascending price",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"postcode":  {Type: genai.TypeString, Description: "NSW postcode of the search centre"},
				"latitude":  {Type: genai.TypeNumber, Description: "Latitude of the search centre"},
				"longitude": {Type: genai.TypeNumber, Description: "Longitude of the search centre"},
				"radius":    {Type: genai.TypeNumber, Description: "Search radius in kilometres"},
				"fueltype":  fuelTypeSchema,
				"brands":    brandsSchema,
			},
			Required: []string{"postcode", "latitude", "longitude", "radius", "fueltype"},
		},
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Postcode  string   `json:"postcode"`
			Latitude  float64  `json:"latitude"`
			Longitude float64  `json:"longitude"`
			Radius    float64  `json:"radius"`
			FuelType  string   `json:"fueltype"`
			Brands    []string `json:"brands"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}

		stations, err := client.NearbyPrices(ctx, fuelapi.NearbyQuery{
			NamedLocation: in.Postcode,
			Coordinates:   fuelapi.Coordinates{Latitude: in.Latitude, Longitude: in.Longitude},
			RadiusKm:      in.Radius,
			FuelType:      in.FuelType,
			Brands:        in.Brands,
		})
		if err != nil {
			return "", err
		}
		return marshalResult(stations)
	})

	tools.add(&genai.FunctionDeclaration{
		Name:        "get_price_at_station",
		Description: "Current fuel prices for a single station by its station code",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"station_code": {Type: genai.TypeString, Description: "Station code, e.g. 20594"},
			},
			Required: []string{"station_code"},
		},
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			StationCode string `json:"station_code"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}

		prices, err := client.PricesAtStation(ctx, in.StationCode)
		if err != nil {
			return "", err
		}
		return marshalResult(prices)
	})

	return tools
}

// directionsToolSet wires the directions assistant's tools to Mapbox.
func directionsToolSet(mapbox *geocode.Mapbox, geo geocode.Geocoder) *toolSet {
	tools := newToolSet()
	tools.add(geocodeDecl(), geocodeTool(geo))

	tools.add(&genai.FunctionDeclaration{
		Name:        "get_directions",
		Description: "Driving route between two NSW addresses: distance, duration and turn instructions",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"origin":      {Type: genai.TypeString, Description: "Starting address or postcode"},
				"destination": {Type: genai.TypeString, Description: "Destination address or postcode"},
			},
			Required: []string{"origin", "destination"},
		},
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Origin      string `json:"origin"`
			Destination string `json:"destination"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}

		from, err := geo.Geocode(ctx, in.Origin)
		if err != nil {
			return "", fmt.Errorf("resolving origin: %w", err)
		}
		to, err := geo.Geocode(ctx, in.Destination)
		if err != nil {
			return "", fmt.Errorf("resolving destination: %w", err)
		}

		route, err := mapbox.Directions(ctx, from.Coordinates, to.Coordinates)
		if err != nil {
			return "", err
		}
		return marshalResult(route)
	})

	return tools
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error marshaling tool result: %w", err)
	}
	return string(data), nil
}
