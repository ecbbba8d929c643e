package models

import "time"

// Default per-user tunables.
const (
	DefaultCallAdvanceMinutes       = 40
	DefaultCallRetryIntervalMinutes = 2
	DefaultCallMaxAttempts          = 3
	DefaultServiceTimeMinutes       = 10
	DefaultParkingTimeMinutes       = 7
)

// UserSettings holds the per-courier tunables consumed by the optimizer and
// the call scheduler. Rows are created lazily with defaults on first read.
type UserSettings struct {
	UserID                   string    `json:"user_id"`
	CallAdvanceMinutes       int       `json:"call_advance_minutes"`
	CallRetryIntervalMinutes int       `json:"call_retry_interval_minutes"`
	CallMaxAttempts          int       `json:"call_max_attempts"`
	ServiceTimeMinutes       int       `json:"service_time_minutes"`
	ParkingTimeMinutes       int       `json:"parking_time_minutes"`
	NotificationsEnabled     bool      `json:"notifications_enabled"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings a new courier starts with.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:                   userID,
		CallAdvanceMinutes:       DefaultCallAdvanceMinutes,
		CallRetryIntervalMinutes: DefaultCallRetryIntervalMinutes,
		CallMaxAttempts:          DefaultCallMaxAttempts,
		ServiceTimeMinutes:       DefaultServiceTimeMinutes,
		ParkingTimeMinutes:       DefaultParkingTimeMinutes,
		NotificationsEnabled:     true,
	}
}

// StopServiceMinutes is the full time spent at one stop: service plus
// parking and walking.
func (s UserSettings) StopServiceMinutes() int {
	return s.ServiceTimeMinutes + s.ParkingTimeMinutes
}

// UpdateSettingsRequest is a partial settings update; nil fields are left
// untouched.
type UpdateSettingsRequest struct {
	CallAdvanceMinutes       *int  `json:"call_advance_minutes,omitempty" validate:"omitempty,min=0,max=240"`
	CallRetryIntervalMinutes *int  `json:"call_retry_interval_minutes,omitempty" validate:"omitempty,min=1,max=120"`
	CallMaxAttempts          *int  `json:"call_max_attempts,omitempty" validate:"omitempty,min=1,max=20"`
	ServiceTimeMinutes       *int  `json:"service_time_minutes,omitempty" validate:"omitempty,min=0,max=120"`
	ParkingTimeMinutes       *int  `json:"parking_time_minutes,omitempty" validate:"omitempty,min=0,max=60"`
	NotificationsEnabled     *bool `json:"notifications_enabled,omitempty"`
}
