package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// Key renders the point with the precision used for cache keys (~1 meter).
func (p Point) Key() string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lon)
}

// Estimate is the travel distance and duration between two points.
type Estimate struct {
	DistanceKm float64 `json:"distance_km"`
	Minutes    float64 `json:"minutes"`
}

// DistanceTimeProvider returns travel estimates between two points.
// Implementations may call an external routing API, a cache, or a heuristic.
type DistanceTimeProvider interface {
	Estimate(ctx context.Context, origin, dest Point) (Estimate, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// ErrAddressNotFound is returned when geocoding yields no result.
var ErrAddressNotFound = errors.New("maps: address not found")

const (
	earthRadiusKm   = 6371.0
	fallbackSpeedKm = 30.0 // assumed average urban driving speed, km/h
)

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// fallbackEstimate approximates a leg as the straight-line distance driven
// at fallbackSpeedKm.
func fallbackEstimate(origin, dest Point) Estimate {
	d := HaversineKm(origin, dest)
	return Estimate{DistanceKm: d, Minutes: d / fallbackSpeedKm * 60}
}
