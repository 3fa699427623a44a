package calc

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	type args struct {
		lat1, lon1, lat2, lon2 float64
	}
	tests := []struct {
		name      string
		args      args
		want      float64
		tolerance float64
	}{
		{
			name:      "Same Point",
			args:      args{lat1: -32, lon1: 116, lat2: -32, lon2: 116},
			want:      0,
			tolerance: 0,
		},
		{
			name:      "0.1 deg of latitude",
			args:      args{lat1: 40, lon1: -75, lat2: 40.1, lon2: -75},
			want:      11131.9, // 6378100 * 0.1 * pi / 180
			tolerance: 1,
		},
		{
			name:      "Equator 1 deg of longitude",
			args:      args{lat1: 0, lon1: 0, lat2: 0, lon2: 1},
			want:      111318.8,
			tolerance: 1,
		},
		{
			name:      "Antipodal",
			args:      args{lat1: 0, lon1: 0, lat2: 0, lon2: 180},
			want:      math.Pi * EarthRadius,
			tolerance: 0.001,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.args.lat1, tt.args.lon1, tt.args.lat2, tt.args.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %f, want %f (+/- %f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	points := [][2]float64{
		{40, -75},
		{40.1, -75.3},
		{-32.05, 115.87},
		{51.47, -0.45},
		{-89.9, 179.9},
		{0, 0},
	}
	for _, a := range points {
		for _, b := range points {
			ab := Distance(a[0], a[1], b[0], b[1])
			ba := Distance(b[0], b[1], a[0], a[1])
			if ab != ba {
				t.Errorf("Distance(%v, %v) = %f but reversed = %f", a, b, ab, ba)
			}
			if ab < 0 || math.IsNaN(ab) {
				t.Errorf("Distance(%v, %v) = %f, expected a positive number", a, b, ab)
			}
		}
		if d := Distance(a[0], a[1], a[0], a[1]); d != 0 {
			t.Errorf("Distance from %v to itself = %f, expected 0", a, d)
		}
	}
}

func TestElevationAngle(t *testing.T) {
	tests := []struct {
		name             string
		altitude, ground float64
		want             float64
	}{
		{name: "45 degrees", altitude: 1000, ground: 1000, want: 45},
		{name: "Overhead", altitude: 9144, ground: 0, want: 90},
		{name: "On the ground, here", altitude: 0, ground: 0, want: 0},
		{name: "Far away", altitude: 1000, ground: 1e9, want: 0},
		{name: "Scenario", altitude: 9144, ground: 11131.9, want: math.Atan(9144/11131.9) * 180 / math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ElevationAngle(tt.altitude, tt.ground)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("ElevationAngle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAzimuth(t *testing.T) {
	const obsLat, obsLon = 40.0, -75.0
	tests := []struct {
		name     string
		lat, lon float64
		want     float64
	}{
		{name: "North", lat: 40.5, lon: -75, want: 0},
		{name: "East", lat: 40, lon: -74.5, want: 90},
		{name: "South", lat: 39.5, lon: -75, want: 180},
		{name: "West", lat: 40, lon: -75.5, want: 270},
		{name: "North West", lat: 40.5, lon: -75.5, want: 270 + Degrees(math.Atan2(Distance(40, -75, 40.5, -75), Distance(40, -75, 40, -75.5)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Azimuth(obsLat, obsLon, tt.lat, tt.lon)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("Azimuth() = %f, want %f", got, tt.want)
			}
			if got < 0 || got > 360 {
				t.Errorf("Azimuth() = %f, out of range", got)
			}
		})
	}
}
