package models

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestCallStateTransitions(t *testing.T) {
	allowed := map[CallState]map[CallState]bool{
		CallPending:  {CallPending: true, CallSent: true, CallConfirmed: true},
		CallSent:     {CallPending: true, CallConfirmed: true, CallRejected: true},
		CallRejected: {CallSent: true, CallConfirmed: true, CallFailed: true},
	}

	states := []CallState{CallPending, CallSent, CallConfirmed, CallRejected, CallFailed}
	for _, from := range states {
		for _, to := range states {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: CanTransitionTo = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCallStateTerminal(t *testing.T) {
	for _, tc := range []struct {
		state CallState
		want  bool
	}{
		{CallPending, false},
		{CallSent, false},
		{CallRejected, false},
		{CallConfirmed, true},
		{CallFailed, true},
	} {
		if got := tc.state.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestCallStateValid(t *testing.T) {
	for _, s := range []CallState{CallPending, CallSent, CallConfirmed, CallRejected, CallFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if CallState("delivered").Valid() {
		t.Error("unknown state should not be valid")
	}
}

func TestResolvedArrivalPrefersManual(t *testing.T) {
	est := mustTime(t, "2026-03-02T12:00:00Z")
	manual := mustTime(t, "2026-03-02T14:30:00Z")

	cs := &CallStatus{ArrivalTime: &est}
	if got := cs.ResolvedArrival(); got == nil || !got.Equal(est) {
		t.Fatalf("ResolvedArrival = %v, want estimate %v", got, est)
	}

	cs.ManualArrivalTime = &manual
	cs.IsManualArrival = true
	if got := cs.ResolvedArrival(); got == nil || !got.Equal(manual) {
		t.Fatalf("ResolvedArrival = %v, want manual %v", got, manual)
	}
}
