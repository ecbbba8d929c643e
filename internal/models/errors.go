package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a resource already exists, e.g. a signup
	// with an email that is already registered.
	ErrConflict = errors.New("resource already exists")

	// ErrNoActiveOrders is returned by route optimization when every order
	// for the day is already delivered (or there are none at all).
	ErrNoActiveOrders = errors.New("no active orders to optimize")

	// ErrStartLocationMissing is returned by route optimization when the
	// courier has not set a start location for the day.
	ErrStartLocationMissing = errors.New("start location is not set")

	// ErrNoRoutableStops is returned when all active orders lack resolved
	// coordinates, leaving nothing the optimizer can place on a route.
	ErrNoRoutableStops = errors.New("no orders with resolved coordinates")

	// ErrOptimizationFailed is returned when a travel estimate for a route
	// leg cannot be obtained; a partial route is never returned instead.
	ErrOptimizationFailed = errors.New("route optimization failed")

	// ErrInvalidTransition is returned when a call status change would
	// violate the call state machine.
	ErrInvalidTransition = errors.New("illegal call status transition")

	// ErrInvalidCredentials is returned on a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for an unknown or expired activation or
	// password-reset token.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAccountNotActive is returned when logging into an account that
	// has not confirmed its email yet.
	ErrAccountNotActive = errors.New("account is not activated")
)

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}
