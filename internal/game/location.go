package game

import "time"

// Location is a point in the world as reported by a geolocation source.
type Location struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
	// Heading is normalized to [0, 1) and absent when the device can't tell.
	Heading *float64 `json:"heading,omitempty"`
}

// LocationSample is a location with the time it was taken.
type LocationSample struct {
	At       time.Time `json:"at"`
	Location Location  `json:"location"`
}
