package fuelapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Price is a single fuel price record for a station. Prices are reported by
// the upstream API in Australian cents per litre; converting to dollars is
// left to the presentation layer.
type Price struct {
	StationCode string  `json:"station_code"`
	FuelType    string  `json:"fuel_type"`
	Price       float64 `json:"price"`
	LastUpdated string  `json:"last_updated"`
}

// Coordinates is a WGS84 decimal-degree coordinate pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the pair is inside the valid WGS84 range.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// Station is a fuel retail location together with its current prices.
// Distance is in kilometres from the query point and is only present for
// location and radius searches.
type Station struct {
	Name        string      `json:"name"`
	Brand       string      `json:"brand"`
	BrandID     string      `json:"brand_id,omitempty"`
	StationID   string      `json:"station_id,omitempty"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Distance    *float64    `json:"distance,omitempty"`
	StationCode string      `json:"station_code"`
	Prices      []Price     `json:"prices"`
}

// codeString accepts a JSON string, number or null. The upstream API is not
// consistent about whether station codes are quoted.
type codeString string

func (c *codeString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = codeString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = codeString(n.String())
	return nil
}

type rawPrice struct {
	StationCode codeString `json:"stationcode"`
	FuelType    string     `json:"fueltype"`
	Price       float64    `json:"price"`
	LastUpdated string     `json:"lastupdated"`
}

type rawLocation struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Distance  *float64 `json:"distance"`
}

type rawStation struct {
	BrandID   codeString  `json:"brandid"`
	StationID codeString  `json:"stationid"`
	Brand     string      `json:"brand"`
	Code      codeString  `json:"code"`
	Name      string      `json:"name"`
	Address   string      `json:"address"`
	Location  rawLocation `json:"location"`
}

// pricesResponse is the shape returned by the location and nearby searches:
// a flat price list plus the stations they belong to.
type pricesResponse struct {
	Stations []rawStation `json:"stations"`
	Prices   []rawPrice   `json:"prices"`
}

// stationPricesResponse is the shape returned by the single-station lookup.
type stationPricesResponse struct {
	Prices []rawPrice `json:"prices"`
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   codeString `json:"expires_in"`
}
