package calc

import (
	"math"
)

const (
	// EarthRadius in METERS. The equatorial radius, not the mean one.
	EarthRadius = 6378100

	// FeetToMeters is the international foot
	FeetToMeters = 0.3048

	// rounded to float64 first so these match what every other language computes
	degToRad = float64(math.Pi) / 180
	radToDeg = 180 / float64(math.Pi)
)

// Distance function returns the distance (in meters) between two points of
//     a given longitude and latitude relatively accurately (using a spherical
//     approximation of the Earth) through the Haversin Distance Formula for
//     great arc distance on a sphere with accuracy for small distances
//
// point coordinates are supplied in degrees and converted into rad. in the func
//
// distance returned is METERS!!!!!!
// http://en.wikipedia.org/wiki/Haversine_formula
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	// convert to radians
	la1 := Radians(lat1)
	lo1 := Radians(lon1)
	la2 := Radians(lat2)
	lo2 := Radians(lon2)

	// calculate
	h := hsin(la2-la1) + math.Cos(la1)*math.Cos(la2)*hsin(lo2-lo1)

	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// haversin(θ) function
func hsin(theta float64) float64 {
	s := math.Sin(theta / 2)
	return s * s
}

func Radians(deg float64) float64 {
	return deg * degToRad
}

func Degrees(rad float64) float64 {
	return rad * radToDeg
}

// ElevationAngle is the angle (degrees) above the horizon of something altitude meters up and
// groundDistance meters away. Flat right triangle, no curvature or observer height correction.
// Something directly overhead is at 90 degrees.
func ElevationAngle(altitude, groundDistance float64) float64 {
	// atan2 with a positive x is exactly atan(y/x)
	return Degrees(math.Atan2(altitude, groundDistance))
}

// Azimuth returns the bearing (degrees, 0-360) from the observer to the target.
//
// It is built from two signed component distances, one along the observer's meridian and one
// along the observer's parallel. The atan2 angle of those is then rotated so that it is measured
// clockwise from the latitude axis. Overlays depend on this exact convention, do not replace it
// with the great circle initial bearing.
func Azimuth(obsLat, obsLon, lat, lon float64) float64 {
	latDist := Distance(obsLat, obsLon, lat, obsLon)
	lonDist := Distance(obsLat, obsLon, obsLat, lon)

	if obsLat > lat {
		latDist *= -1
	}
	if obsLon > lon {
		lonDist *= -1
	}

	angle := Degrees(math.Atan2(latDist, lonDist))
	if angle > 90 {
		return 450 - angle
	}
	return 90 - angle
}
