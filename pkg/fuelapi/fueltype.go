package fuelapi

// fuelTypeLabels is the closed set of fuel grade codes recognised by the NSW
// FuelCheck API, mapped to their display labels.
var fuelTypeLabels = map[string]string{
	"E10": "Ethanol 94",
	"U91": "Unleaded 91",
	"E85": "Ethanol 105",
	"P95": "Premium 95",
	"P98": "Premium 98",
	"DL":  "Diesel",
	"PDL": "Premium Diesel",
	"B20": "Biodiesel 20",
	"LPG": "LPG",
	"CNG": "CNG/NGV",
	"EV":  "Electric vehicle charge",
}

// ValidFuelType reports whether code is one of the recognised fuel grades.
func ValidFuelType(code string) bool {
	_, ok := fuelTypeLabels[code]
	return ok
}

// FuelTypeLabel returns the display label for a fuel grade code, or the code
// itself when it is not recognised.
func FuelTypeLabel(code string) string {
	if label, ok := fuelTypeLabels[code]; ok {
		return label
	}
	return code
}

// FuelTypes returns all recognised fuel grade codes.
func FuelTypes() []string {
	codes := make([]string, 0, len(fuelTypeLabels))
	for code := range fuelTypeLabels {
		codes = append(codes, code)
	}
	return codes
}
