package skypos

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"allsky.watch/lib/calc"
	"allsky.watch/lib/feed"
)

const (
	UnknownID = "Unknown"

	// DistantAfter is how far away (meters) an aircraft is before we suspect the observer
	// location is wrong. Nothing this far out should be visible.
	DistantAfter = 75000
)

type (
	// Observer is where the camera is. Elevation is informational only.
	Observer struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Elevation float64 `json:"elevation"`
	}

	// SkyPosition is an aircraft as seen from the Observer
	SkyPosition struct {
		ID     string `json:"id"`
		Flight string `json:"flight,omitempty"`
		Squawk string `json:"squawk,omitempty"`
		Hex    string `json:"hex,omitempty"`

		AltitudeKm float64 `json:"altitude"`
		DistanceKm float64 `json:"distance"`

		// ElevationDeg is degrees above the horizon (astronomical altitude)
		ElevationDeg float64 `json:"alt"`
		AzimuthDeg   float64 `json:"az"`

		// Distant is set when the aircraft is further out than DistantAfter
		Distant bool `json:"distant,omitempty"`
	}
)

func (o Observer) Valid() bool {
	return o.Latitude >= -90 && o.Latitude <= 90 && o.Longitude >= -180 && o.Longitude <= 180
}

// Identify picks the best name for an aircraft: callsign, then squawk, then hex
func Identify(flight, squawk, hex string) string {
	switch {
	case "" != flight:
		return flight
	case "" != squawk:
		return squawk
	case "" != hex:
		return hex
	default:
		return UnknownID
	}
}

// Transform places a feed record in the observer's sky. ok is false when the record has no
// usable position (landed, no altitude, no lat/lon).
func Transform(o Observer, r feed.Record) (pos SkyPosition, ok bool) {
	if !r.HasPosition() {
		return pos, false
	}
	lat := r.Lat.Value
	lon := r.Lon.Value

	flight := strings.TrimRightFunc(string(r.Flight), unicode.IsSpace)

	// the feed gives whole feet
	altitudeM := float64(int64(r.Altitude.Feet)) * calc.FeetToMeters
	distanceM := calc.Distance(o.Latitude, o.Longitude, lat, lon)

	pos = SkyPosition{
		ID:           Identify(flight, string(r.Squawk), string(r.Hex)),
		Flight:       flight,
		Squawk:       string(r.Squawk),
		Hex:          string(r.Hex),
		AltitudeKm:   altitudeM / 1000,
		DistanceKm:   distanceM / 1000,
		ElevationDeg: calc.ElevationAngle(altitudeM, distanceM),
		AzimuthDeg:   calc.Azimuth(o.Latitude, o.Longitude, lat, lon),
		Distant:      distanceM > DistantAfter,
	}
	return pos, true
}

// MarshalZerologObject lets us log a position with .EmbedObject()
func (p SkyPosition) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", p.ID).
		Float64("altitude_km", p.AltitudeKm).
		Float64("distance_km", p.DistanceKm).
		Float64("alt", p.ElevationDeg).
		Float64("az", p.AzimuthDeg)
}
