package models

import (
	"regexp"
	"strconv"
	"time"
)

// Order statuses. An order is a Stop candidate for the optimizer until it is
// delivered.
const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
)

// Order represents a single delivery order for one courier and one day.
// Identity is (user_id, order_date, order_number).
type Order struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	OrderNumber     string     `json:"order_number"`
	OrderDate       time.Time  `json:"order_date"`
	CustomerName    string     `json:"customer_name,omitempty"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Comment         string     `json:"comment,omitempty"`
	Entrance        string     `json:"entrance,omitempty"`
	Apartment       string     `json:"apartment,omitempty"`
	DeliveryWindow  string     `json:"delivery_window,omitempty"` // raw "10:00 - 14:00"
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	Status          string     `json:"status"`
	ManualArrival   *time.Time `json:"manual_arrival,omitempty"`
	IsManualArrival bool       `json:"is_manual_arrival"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasCoordinates reports whether the order can be placed on a route.
// Geocoding is a precondition of optimization, not part of it.
func (o *Order) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// Coords returns the order coordinates; only valid when HasCoordinates.
func (o *Order) Coords() Coordinates {
	return Coordinates{Lat: *o.Latitude, Lon: *o.Longitude}
}

var timeWindowPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)

// ParseDeliveryWindow extracts the delivery time window from the raw
// "HH:MM - HH:MM" string and anchors it to the order date. A string without
// a recognizable window leaves both bounds nil.
func (o *Order) ParseDeliveryWindow() {
	m := timeWindowPattern.FindStringSubmatch(o.DeliveryWindow)
	if m == nil {
		return
	}
	sh, _ := strconv.Atoi(m[1])
	sm, _ := strconv.Atoi(m[2])
	eh, _ := strconv.Atoi(m[3])
	em, _ := strconv.Atoi(m[4])
	if sh > 23 || eh > 23 || sm > 59 || em > 59 {
		return
	}
	y, mo, d := o.OrderDate.Date()
	start := time.Date(y, mo, d, sh, sm, 0, 0, o.OrderDate.Location())
	end := time.Date(y, mo, d, eh, em, 0, 0, o.OrderDate.Location())
	o.WindowStart = &start
	o.WindowEnd = &end
}

// CreateOrderRequest represents the data needed to add a new daily order.
type CreateOrderRequest struct {
	OrderNumber    string   `json:"order_number" validate:"required"`
	CustomerName   string   `json:"customer_name,omitempty"`
	Phone          string   `json:"phone" validate:"required"`
	Address        string   `json:"address" validate:"required"`
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Comment        string   `json:"comment,omitempty"`
	Entrance       string   `json:"entrance,omitempty"`
	Apartment      string   `json:"apartment,omitempty"`
	DeliveryWindow string   `json:"delivery_window,omitempty"`
	Date           string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateOrderContactRequest updates contact data on an existing order.
// A changed phone or name propagates into the order's call status.
type UpdateOrderContactRequest struct {
	CustomerName *string `json:"customer_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Comment      *string `json:"comment,omitempty"`
}

// SetManualArrivalRequest pins the arrival time of one stop.
type SetManualArrivalRequest struct {
	ArrivalTime time.Time `json:"arrival_time" validate:"required"`
}

// ClearDayResult counts the rows removed when a courier wipes one day:
// the orders themselves plus the call statuses, route snapshots and start
// locations that referenced them.
type ClearDayResult struct {
	Orders         int64 `json:"orders"`
	CallStatuses   int64 `json:"call_statuses"`
	RouteSnapshots int64 `json:"route_snapshots"`
	StartLocations int64 `json:"start_locations"`
}
