package route

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/utils"
)

var (
	depot = maps.Point{Lat: 55.75, Lon: 37.61}
	ptA   = maps.Point{Lat: 55.76, Lon: 37.62}
	ptB   = maps.Point{Lat: 55.77, Lon: 37.63}
	ptC   = maps.Point{Lat: 55.78, Lon: 37.64}
)

func testOrder(number string, pt maps.Point) *models.Order {
	lat, lon := pt.Lat, pt.Lon
	return &models.Order{
		OrderNumber:  number,
		CustomerName: "Customer " + number,
		Phone:        "+7900000" + number,
		Address:      "Address " + number,
		Latitude:     &lat,
		Longitude:    &lon,
		Status:       models.OrderStatusPending,
	}
}

func testSettings(serviceMin, advanceMin int) models.UserSettings {
	s := models.DefaultSettings("user-1")
	s.ServiceTimeMinutes = serviceMin
	s.ParkingTimeMinutes = 0
	s.CallAdvanceMinutes = advanceMin
	return s
}

func dayAt(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.Local)
}

// threeStopLegs wires a fully connected graph where the greedy walk is
// depot -> A (15 min) -> B (20 min) -> C (12 min).
func threeStopLegs() []maps.MockLeg {
	return []maps.MockLeg{
		{From: depot, To: ptA, Minutes: 15, DistanceKm: 5},
		{From: depot, To: ptB, Minutes: 30, DistanceKm: 11},
		{From: depot, To: ptC, Minutes: 40, DistanceKm: 14},
		{From: ptA, To: ptB, Minutes: 20, DistanceKm: 8},
		{From: ptA, To: ptC, Minutes: 35, DistanceKm: 12},
		{From: ptB, To: ptA, Minutes: 20, DistanceKm: 8},
		{From: ptB, To: ptC, Minutes: 12, DistanceKm: 4},
		{From: ptC, To: ptA, Minutes: 35, DistanceKm: 12},
		{From: ptC, To: ptB, Minutes: 12, DistanceKm: 4},
	}
}

func TestPlanThreeStopArrivalChain(t *testing.T) {
	opt := NewOptimizer(maps.NewMockProvider(threeStopLegs()))
	start := dayAt(9, 0)

	snap, warnings, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{testOrder("A", ptA), testOrder("B", ptB), testOrder("C", ptC)},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	wantSeq := []string{"A", "B", "C"}
	wantArrivals := []time.Time{dayAt(9, 15), dayAt(9, 45), dayAt(10, 7)}
	if len(snap.Points) != 3 {
		t.Fatalf("got %d points, want 3", len(snap.Points))
	}
	for i, p := range snap.Points {
		if p.OrderNumber != wantSeq[i] {
			t.Errorf("point %d: order %s, want %s", i, p.OrderNumber, wantSeq[i])
		}
		if !p.EstimatedArrival.Equal(wantArrivals[i]) {
			t.Errorf("point %d: arrival %s, want %s", i,
				p.EstimatedArrival.Format("15:04"), wantArrivals[i].Format("15:04"))
		}
	}
	if want := dayAt(10, 17); !snap.EstimatedCompletion.Equal(want) {
		t.Errorf("completion %s, want %s", snap.EstimatedCompletion.Format("15:04"), want.Format("15:04"))
	}
	if snap.TotalDistanceKm != 17 {
		t.Errorf("total distance %v km, want 17", snap.TotalDistanceKm)
	}
}

func TestPlanDeterministicAcrossPermutations(t *testing.T) {
	opt := NewOptimizer(maps.NewMockProvider(threeStopLegs()))
	start := dayAt(9, 0)
	in := PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	}

	var baseline []string
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 20; run++ {
		stops := []*models.Order{testOrder("A", ptA), testOrder("B", ptB), testOrder("C", ptC)}
		rng.Shuffle(len(stops), func(i, j int) { stops[i], stops[j] = stops[j], stops[i] })
		in.Stops = stops

		snap, _, err := opt.Plan(context.Background(), in)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if baseline == nil {
			baseline = snap.OrderSequence
			continue
		}
		for i := range baseline {
			if snap.OrderSequence[i] != baseline[i] {
				t.Fatalf("run %d: sequence %v, want %v", run, snap.OrderSequence, baseline)
			}
		}
	}
}

func TestPlanTieBreakPrefersEarlierWindowEnd(t *testing.T) {
	// Equal travel time from the depot; B's window ends earlier so B goes
	// first despite the higher order number.
	legs := []maps.MockLeg{
		{From: depot, To: ptA, Minutes: 10, DistanceKm: 3},
		{From: depot, To: ptB, Minutes: 10, DistanceKm: 3},
		{From: ptB, To: ptA, Minutes: 5, DistanceKm: 2},
		{From: ptA, To: ptB, Minutes: 5, DistanceKm: 2},
	}
	opt := NewOptimizer(maps.NewMockProvider(legs))
	start := dayAt(9, 0)

	a := testOrder("100", ptA)
	a.OrderDate = utils.Midnight(start)
	a.DeliveryWindow = "12:00 - 18:00"
	a.ParseDeliveryWindow()
	b := testOrder("200", ptB)
	b.OrderDate = utils.Midnight(start)
	b.DeliveryWindow = "09:00 - 11:00"
	b.ParseDeliveryWindow()

	snap, _, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{a, b},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if snap.OrderSequence[0] != "200" || snap.OrderSequence[1] != "100" {
		t.Fatalf("sequence %v, want [200 100]", snap.OrderSequence)
	}
}

func TestPlanTieBreakWindowlessStopLosesToDeadline(t *testing.T) {
	legs := []maps.MockLeg{
		{From: depot, To: ptA, Minutes: 10, DistanceKm: 3},
		{From: depot, To: ptB, Minutes: 10, DistanceKm: 3},
		{From: ptB, To: ptA, Minutes: 5, DistanceKm: 2},
	}
	opt := NewOptimizer(maps.NewMockProvider(legs))
	start := dayAt(9, 0)

	a := testOrder("100", ptA) // no window
	b := testOrder("200", ptB)
	b.OrderDate = utils.Midnight(start)
	b.DeliveryWindow = "09:00 - 11:00"
	b.ParseDeliveryWindow()

	snap, _, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{a, b},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if snap.OrderSequence[0] != "200" {
		t.Fatalf("sequence %v, want the windowed stop first", snap.OrderSequence)
	}
}

func TestPlanClampsArrivalToWindowStart(t *testing.T) {
	legs := []maps.MockLeg{{From: depot, To: ptA, Minutes: 15, DistanceKm: 5}}
	opt := NewOptimizer(maps.NewMockProvider(legs))
	start := dayAt(9, 0)

	a := testOrder("A", ptA)
	a.OrderDate = utils.Midnight(start)
	a.DeliveryWindow = "10:00 - 14:00"
	a.ParseDeliveryWindow()

	snap, warnings, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{a},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if want := dayAt(10, 0); !snap.Points[0].EstimatedArrival.Equal(want) {
		t.Errorf("arrival %s, want clamp to window start %s",
			snap.Points[0].EstimatedArrival.Format("15:04"), want.Format("15:04"))
	}
}

func TestPlanWarnsAfterWindowEnd(t *testing.T) {
	legs := []maps.MockLeg{{From: depot, To: ptA, Minutes: 90, DistanceKm: 40}}
	opt := NewOptimizer(maps.NewMockProvider(legs))
	start := dayAt(9, 0)

	a := testOrder("A", ptA)
	a.OrderDate = utils.Midnight(start)
	a.DeliveryWindow = "09:00 - 10:00"
	a.ParseDeliveryWindow()

	snap, warnings, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{a},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "order A") {
		t.Fatalf("warnings %v, want one delivery-window warning for order A", warnings)
	}
	// The late arrival is kept as computed, never clamped down.
	if want := dayAt(10, 30); !snap.Points[0].EstimatedArrival.Equal(want) {
		t.Errorf("arrival %s, want %s", snap.Points[0].EstimatedArrival.Format("15:04"), want.Format("15:04"))
	}
}

func TestPlanManualArrivalPinned(t *testing.T) {
	opt := NewOptimizer(maps.NewMockProvider(threeStopLegs()))
	start := dayAt(9, 0)

	pinned := dayAt(11, 30)
	b := testOrder("B", ptB)
	b.ManualArrival = &pinned
	b.IsManualArrival = true

	run := func(keepManual bool) *models.RouteSnapshot {
		t.Helper()
		snap, _, err := opt.Plan(context.Background(), PlanInput{
			UserID:     "user-1",
			Date:       utils.Midnight(start),
			Stops:      []*models.Order{testOrder("A", ptA), b, testOrder("C", ptC)},
			Start:      depot,
			StartTime:  start,
			Settings:   testSettings(10, 40),
			Now:        start,
			KeepManual: keepManual,
		})
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		return snap
	}

	snap := run(true)
	var found bool
	for _, p := range snap.Points {
		if p.OrderNumber != "B" {
			continue
		}
		found = true
		if !p.EstimatedArrival.Equal(pinned) {
			t.Errorf("manual arrival %s, want pinned %s",
				p.EstimatedArrival.Format("15:04"), pinned.Format("15:04"))
		}
		if !p.ManualArrival {
			t.Error("point should be flagged as manual")
		}
	}
	if !found {
		t.Fatal("order B missing from route")
	}

	// Recalculation without manual pins falls back to the computed chain.
	snap = run(false)
	for _, p := range snap.Points {
		if p.OrderNumber == "B" && p.EstimatedArrival.Equal(pinned) {
			t.Error("manual pin applied despite KeepManual=false")
		}
		if p.ManualArrival {
			t.Error("no point should be flagged manual when pins are dropped")
		}
	}
}

func TestPlanCallTimeDerivation(t *testing.T) {
	opt := NewOptimizer(maps.NewMockProvider(threeStopLegs()))
	start := dayAt(9, 0)

	snap, _, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{testOrder("A", ptA), testOrder("B", ptB), testOrder("C", ptC)},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// A arrives 09:15; 40 minutes of advance would place the call in the
	// past, so it clamps to now. B arrives 09:45, call at 09:05.
	if want := start; !snap.Points[0].CallTime.Equal(want) {
		t.Errorf("call time for A %s, want clamped to %s",
			snap.Points[0].CallTime.Format("15:04"), want.Format("15:04"))
	}
	if want := dayAt(9, 5); !snap.Points[1].CallTime.Equal(want) {
		t.Errorf("call time for B %s, want %s",
			snap.Points[1].CallTime.Format("15:04"), want.Format("15:04"))
	}
}

func TestPlanNoStops(t *testing.T) {
	opt := NewOptimizer(maps.NewMockProvider(nil))
	_, _, err := opt.Plan(context.Background(), PlanInput{UserID: "user-1"})
	if !errors.Is(err, models.ErrNoActiveOrders) {
		t.Fatalf("err = %v, want ErrNoActiveOrders", err)
	}
}

func TestPlanProviderFailure(t *testing.T) {
	// Provider knows no legs at all, so the first estimate fails.
	opt := NewOptimizer(maps.NewMockProvider(nil))
	start := dayAt(9, 0)

	_, _, err := opt.Plan(context.Background(), PlanInput{
		UserID:    "user-1",
		Date:      utils.Midnight(start),
		Stops:     []*models.Order{testOrder("A", ptA)},
		Start:     depot,
		StartTime: start,
		Settings:  testSettings(10, 40),
		Now:       start,
	})
	if !errors.Is(err, models.ErrOptimizationFailed) {
		t.Fatalf("err = %v, want ErrOptimizationFailed", err)
	}
	if !strings.Contains(err.Error(), "leg") {
		t.Errorf("error %q should name the failing leg", err)
	}
}
