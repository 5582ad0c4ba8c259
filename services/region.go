package services

import (
	"strings"

	"housing-navigator/models"
)

// nycNeighborhoods is the recognized neighborhood list, checked before
// falling back to a borough.
var nycNeighborhoods = []string{
	"Astoria", "Bedford-Stuyvesant", "Bushwick", "Crown Heights", "East Harlem",
	"Flatbush", "Jackson Heights", "Kingsbridge", "Lower East Side", "Morningside Heights",
	"Washington Heights", "South Bronx", "Jamaica", "Flushing", "Sunset Park", "Harlem",
	"East Village", "West Village", "Chelsea", "Midtown", "Financial District", "Brooklyn Heights",
	"Park Slope", "Williamsburg", "Greenpoint", "Long Island City", "Forest Hills", "Riverdale",
}

var nycBoroughs = []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island"}

// ExtractRegion derives the region triple from a free-text address.
// Neighborhoods are preferred over boroughs; anything unrecognized
// defaults to the city itself.
func ExtractRegion(address string) models.Region {
	region := models.Region{City: "New York", State: "NY", Country: "USA"}

	for _, n := range nycNeighborhoods {
		if strings.Contains(address, n) {
			region.City = n
			return region
		}
	}
	for _, b := range nycBoroughs {
		if strings.Contains(address, b) {
			region.City = b
			return region
		}
	}
	return region
}
