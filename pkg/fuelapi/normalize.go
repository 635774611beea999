package fuelapi

// normalizeStations joins the flat price list to the station list by station
// code and returns nested station records.
//
// Prices are grouped by stringified station code in their original relative
// order. Entries with a null or absent code are dropped. A price whose code
// matches no station is silently discarded; a station with no matching
// prices gets an empty list. Stations keep the order the upstream returned
// them in, which is already the requested ascending-price sort.
func normalizeStations(resp *pricesResponse) []Station {
	grouped := make(map[string][]Price)
	for _, p := range resp.Prices {
		code := string(p.StationCode)
		if code == "" {
			continue
		}
		grouped[code] = append(grouped[code], Price{
			StationCode: code,
			FuelType:    p.FuelType,
			Price:       p.Price,
			LastUpdated: p.LastUpdated,
		})
	}

	stations := make([]Station, 0, len(resp.Stations))
	for _, s := range resp.Stations {
		code := string(s.Code)
		prices := grouped[code]
		if prices == nil {
			// Marshals as an empty array rather than null.
			prices = []Price{}
		}
		stations = append(stations, Station{
			Name:    s.Name,
			Brand:   s.Brand,
			BrandID: string(s.BrandID),
			Address: s.Address,
			Coordinates: Coordinates{
				Latitude:  s.Location.Latitude,
				Longitude: s.Location.Longitude,
			},
			Distance:    s.Location.Distance,
			StationCode: code,
			StationID:   string(s.StationID),
			Prices:      prices,
		})
	}

	return stations
}
