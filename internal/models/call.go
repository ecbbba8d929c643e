package models

import "time"

// CallState is the lifecycle state of a customer-call reminder.
type CallState string

const (
	CallPending   CallState = "pending"
	CallSent      CallState = "sent"
	CallConfirmed CallState = "confirmed"
	CallRejected  CallState = "rejected"
	CallFailed    CallState = "failed"
)

// DeliveredAttemptsSentinel marks a call force-failed because its order was
// delivered before the call happened; it keeps the row out of every retry
// query regardless of the per-user attempt cap.
const DeliveredAttemptsSentinel = 999

// callTransitions is the single source of truth for legal state changes.
// confirmed and failed are terminal for the day's instance; pending→pending
// and sent→pending cover the refresh path when a route is re-optimized.
// Any non-terminal state can be confirmed: a courier may call the customer
// before the reminder goes out.
var callTransitions = map[CallState][]CallState{
	CallPending:   {CallPending, CallSent, CallConfirmed},
	CallSent:      {CallPending, CallConfirmed, CallRejected},
	CallRejected:  {CallSent, CallConfirmed, CallFailed},
	CallConfirmed: {},
	CallFailed:    {},
}

// Valid reports whether s is a known call state.
func (s CallState) Valid() bool {
	_, ok := callTransitions[s]
	return ok
}

// Terminal reports whether the scheduler will never move the call again.
func (s CallState) Terminal() bool {
	return s == CallConfirmed || s == CallFailed
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s CallState) CanTransitionTo(next CallState) bool {
	for _, t := range callTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CallStatus tracks one reminder call for one order on one day.
// Identity is (user_id, call_date, order_number).
type CallStatus struct {
	ID                  int64      `json:"id"`
	UserID              string     `json:"user_id"`
	OrderNumber         string     `json:"order_number"`
	CallDate            time.Time  `json:"call_date"`
	CallTime            time.Time  `json:"call_time"`
	ArrivalTime         *time.Time `json:"arrival_time,omitempty"`
	ManualArrivalTime   *time.Time `json:"manual_arrival_time,omitempty"`
	Phone               string     `json:"phone"`
	CustomerName        string     `json:"customer_name,omitempty"`
	Status              CallState  `json:"status"`
	Attempts            int        `json:"attempts"`
	NextAttemptTime     *time.Time `json:"next_attempt_time,omitempty"`
	IsManualCall        bool       `json:"is_manual_call"`
	IsManualArrival     bool       `json:"is_manual_arrival"`
	ConfirmationComment string     `json:"confirmation_comment,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ResolvedArrival returns the arrival shown to the courier; a manual
// override always wins over the computed estimate.
func (c *CallStatus) ResolvedArrival() *time.Time {
	if c.IsManualArrival && c.ManualArrivalTime != nil {
		return c.ManualArrivalTime
	}
	return c.ArrivalTime
}

// CallNotification is what the background checker hands to the Notifier for
// one due call.
type CallNotification struct {
	CallStatusID int64      `json:"call_status_id"`
	UserID       string     `json:"user_id"`
	OrderNumber  string     `json:"order_number"`
	CallTime     time.Time  `json:"call_time"`
	Phone        string     `json:"phone"`
	CustomerName string     `json:"customer_name,omitempty"`
	ArrivalTime  *time.Time `json:"arrival_time,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	Message      string     `json:"message"`
	Attempts     int        `json:"attempts"`
	IsRetry      bool       `json:"is_retry"`
}

// CreateCallStatusParams carries the data for the create-or-refresh
// operation triggered by route optimization (or manual scheduling).
type CreateCallStatusParams struct {
	OrderNumber       string     `json:"order_number" validate:"required"`
	CallTime          time.Time  `json:"call_time" validate:"required"`
	Phone             string     `json:"phone" validate:"required"`
	CustomerName      string     `json:"customer_name,omitempty"`
	ArrivalTime       *time.Time `json:"arrival_time,omitempty"`
	ManualArrivalTime *time.Time `json:"manual_arrival_time,omitempty"`
	IsManualCall      bool       `json:"is_manual_call,omitempty"`
	IsManualArrival   bool       `json:"is_manual_arrival,omitempty"`
}

// ConfirmCallRequest confirms a call, optionally with a free-text comment.
type ConfirmCallRequest struct {
	Comment string `json:"comment,omitempty" validate:"omitempty,max=500"`
}
