package models

import "time"

// Coordinates is an immutable latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Start location types.
const (
	StartLocationGeo     = "geo"
	StartLocationAddress = "address"
)

// StartLocation is the fixed route origin for one courier and one day.
type StartLocation struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	LocationDate time.Time  `json:"location_date"`
	LocationType string     `json:"location_type"` // geo | address
	Address      string     `json:"address,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RoutePoint is one ordered stop of a computed route, annotated with the
// travel delta from the previous point and the derived call time.
type RoutePoint struct {
	OrderNumber      string    `json:"order_number"`
	Address          string    `json:"address"`
	CustomerName     string    `json:"customer_name,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Comment          string    `json:"comment,omitempty"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
	CallTime         time.Time `json:"call_time"`
	DistanceFromPrev float64   `json:"distance_from_prev_km"`
	TimeFromPrev     float64   `json:"time_from_prev_min"`
	ManualArrival    bool      `json:"manual_arrival,omitempty"`
}

// RouteSnapshot is the persisted result of one optimization run for a
// courier and a day. It is replaced wholesale on re-optimization; the points
// reference orders by number only.
type RouteSnapshot struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"`
	RouteDate           time.Time    `json:"route_date"`
	Points              []RoutePoint `json:"points"`
	OrderSequence       []string     `json:"order_sequence"`
	TotalDistanceKm     float64      `json:"total_distance_km"`
	TotalTimeMin        float64      `json:"total_time_min"`
	EstimatedCompletion time.Time    `json:"estimated_completion"`
	OptimizedAt         time.Time    `json:"optimized_at"`
}

// SaveStartLocationRequest sets the route origin for a day. Either explicit
// coordinates or a free-text address (geocoded at optimization time).
type SaveStartLocationRequest struct {
	LocationType string     `json:"location_type" validate:"required,oneof=geo address"`
	Address      string     `json:"address,omitempty" validate:"required_if=LocationType address"`
	Latitude     *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	Date         string     `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// OptimizeRouteRequest triggers (re-)optimization of the day's route.
type OptimizeRouteRequest struct {
	Date                string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RecalcWithoutManual bool   `json:"recalc_without_manual,omitempty"`
}

// RouteResult is the outcome of an optimize call. Input-validation failures
// are reported through ErrorMessage rather than an error so callers always
// branch on Success.
type RouteResult struct {
	Success      bool           `json:"success"`
	Route        *RouteSnapshot `json:"route,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
}
