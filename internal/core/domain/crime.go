package domain

import (
	"fmt"
	"strconv"
)

// CrimeRecord is one street-level crime as returned by the police API.
type CrimeRecord struct {
	ID              int64         `json:"id"`
	PersistentID    string        `json:"persistent_id,omitempty"`
	Category        string        `json:"category"`
	LocationType    string        `json:"location_type,omitempty"`
	LocationSubtype string        `json:"location_subtype,omitempty"`
	Location        CrimeLocation `json:"location"`
	Context         string        `json:"context,omitempty"`
	Month           string        `json:"month,omitempty"`
	OutcomeStatus   *Outcome      `json:"outcome_status"`
}

// CrimeLocation carries coordinates as decimal strings, as the API does.
type CrimeLocation struct {
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
	Street    *Street `json:"street,omitempty"`
}

// Street is the anonymised street a crime was mapped to.
type Street struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Outcome is the latest outcome recorded for a crime.
type Outcome struct {
	Category string `json:"category"`
	Date     string `json:"date"`
}

// Point parses the record's coordinates.
func (l CrimeLocation) Point() (GeoPoint, error) {
	lat, err := strconv.ParseFloat(l.Latitude, 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("latitude %q: %w", l.Latitude, err)
	}
	lon, err := strconv.ParseFloat(l.Longitude, 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("longitude %q: %w", l.Longitude, err)
	}
	return GeoPoint{Lat: lat, Lon: lon}, nil
}
