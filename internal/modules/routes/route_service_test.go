package route

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/utils"
)

type fakeRouteRepo struct {
	startLocs map[string]*models.StartLocation
	snapshots map[string]*models.RouteSnapshot
	saveErr   error
}

func newFakeRouteRepo() *fakeRouteRepo {
	return &fakeRouteRepo{
		startLocs: map[string]*models.StartLocation{},
		snapshots: map[string]*models.RouteSnapshot{},
	}
}

func dayKey(userID string, date time.Time) string {
	return userID + "|" + date.Format(utils.DateLayout)
}

func (r *fakeRouteRepo) SaveStartLocation(_ context.Context, loc *models.StartLocation) (*models.StartLocation, error) {
	cp := *loc
	r.startLocs[dayKey(loc.UserID, loc.LocationDate)] = &cp
	return &cp, nil
}

func (r *fakeRouteRepo) GetStartLocation(_ context.Context, userID string, date time.Time) (*models.StartLocation, error) {
	loc, ok := r.startLocs[dayKey(userID, date)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (r *fakeRouteRepo) SaveSnapshot(_ context.Context, snap *models.RouteSnapshot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *snap
	r.snapshots[dayKey(snap.UserID, snap.RouteDate)] = &cp
	return nil
}

func (r *fakeRouteRepo) GetSnapshot(_ context.Context, userID string, date time.Time) (*models.RouteSnapshot, error) {
	snap, ok := r.snapshots[dayKey(userID, date)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

type fakeOrderSource struct {
	orders []*models.Order
}

func (f *fakeOrderSource) ListByDate(_ context.Context, _ string, _ time.Time) ([]*models.Order, error) {
	return f.orders, nil
}

func (f *fakeOrderSource) UpdateCoordinates(_ context.Context, _ string, _ time.Time, orderNumber string, lat, lon float64) error {
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			o.Latitude, o.Longitude = &lat, &lon
		}
	}
	return nil
}

type fakeCallRefresh struct {
	mu        sync.Mutex
	refreshed []models.CreateCallStatusParams
}

func (f *fakeCallRefresh) CreateOrRefreshCallStatus(_ context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, p)
	return &models.CallStatus{UserID: userID, CallDate: date, OrderNumber: p.OrderNumber, Status: models.CallPending}, nil
}

type fakeSettingsSource struct{}

func (fakeSettingsSource) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	s := models.DefaultSettings(userID)
	s.ServiceTimeMinutes = 10
	s.ParkingTimeMinutes = 0
	return &s, nil
}

type routeFixture struct {
	repo     *fakeRouteRepo
	orders   *fakeOrderSource
	calls    *fakeCallRefresh
	provider *maps.MockProvider
	svc      *Service
}

func newRouteFixture(legs []maps.MockLeg) *routeFixture {
	f := &routeFixture{
		repo:     newFakeRouteRepo(),
		orders:   &fakeOrderSource{},
		calls:    &fakeCallRefresh{},
		provider: maps.NewMockProvider(legs),
	}
	f.svc = NewService(f.repo, f.orders, f.calls, fakeSettingsSource{}, f.provider, f.provider)
	return f
}

func (f *routeFixture) seedStart(userID string, date time.Time) {
	lat, lon := depot.Lat, depot.Lon
	f.repo.startLocs[dayKey(userID, date)] = &models.StartLocation{
		UserID:       userID,
		LocationDate: date,
		LocationType: models.StartLocationGeo,
		Latitude:     &lat,
		Longitude:    &lon,
	}
}

func TestOptimizeRouteHappyPath(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)
	f.orders.orders = []*models.Order{testOrder("A", ptA), testOrder("B", ptB), testOrder("C", ptC)}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if !result.Success || result.Route == nil {
		t.Fatalf("result = %+v, want success with a route", result)
	}
	if len(result.Route.Points) != 3 {
		t.Fatalf("%d points, want 3", len(result.Route.Points))
	}

	// Snapshot persisted and call rows refreshed for every routed stop.
	if _, err := f.svc.GetRoute(context.Background(), "user-1", today); err != nil {
		t.Fatalf("GetRoute after optimize: %v", err)
	}
	if len(f.calls.refreshed) != 3 {
		t.Fatalf("%d call refreshes, want 3", len(f.calls.refreshed))
	}
}

func TestOptimizeRouteDefaultsStartToNineAM(t *testing.T) {
	tomorrow := utils.Midnight(time.Now().AddDate(0, 0, 1))
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", tomorrow)
	f.orders.orders = []*models.Order{testOrder("A", ptA)}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{
		Date: tomorrow.Format(utils.DateLayout),
	})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	// No saved start time, so the shift opens at 09:00 and the 15 minute
	// leg to the first stop lands at 09:15.
	want := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 15, 0, 0, tomorrow.Location())
	if got := result.Route.Points[0].EstimatedArrival; !got.Equal(want) {
		t.Fatalf("first arrival = %v, want %v", got, want)
	}
}

func TestOptimizeRouteKeepsSavedStartTime(t *testing.T) {
	tomorrow := utils.Midnight(time.Now().AddDate(0, 0, 1))
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", tomorrow)
	start := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 11, 30, 0, 0, tomorrow.Location())
	f.repo.startLocs[dayKey("user-1", tomorrow)].StartTime = &start
	f.orders.orders = []*models.Order{testOrder("A", ptA)}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{
		Date: tomorrow.Format(utils.DateLayout),
	})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	want := start.Add(15 * time.Minute)
	if got := result.Route.Points[0].EstimatedArrival; !got.Equal(want) {
		t.Fatalf("first arrival = %v, want %v", got, want)
	}
}

func TestOptimizeRouteNoStartLocation(t *testing.T) {
	f := newRouteFixture(threeStopLegs())
	f.orders.orders = []*models.Order{testOrder("A", ptA)}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if result.Success {
		t.Fatal("optimization succeeded without a start location")
	}
	if result.ErrorMessage != models.ErrStartLocationMissing.Error() {
		t.Fatalf("error message %q", result.ErrorMessage)
	}
}

func TestOptimizeRouteNoActiveOrders(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)

	delivered := testOrder("A", ptA)
	delivered.Status = models.OrderStatusDelivered
	f.orders.orders = []*models.Order{delivered}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if result.Success || result.ErrorMessage != models.ErrNoActiveOrders.Error() {
		t.Fatalf("result = %+v, want no-active-orders failure", result)
	}
}

func TestOptimizeRouteNoRoutableStops(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)

	unresolvable := testOrder("A", ptA)
	unresolvable.Latitude, unresolvable.Longitude = nil, nil
	unresolvable.Address = "unknown address"
	f.orders.orders = []*models.Order{unresolvable}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if result.Success || result.ErrorMessage != models.ErrNoRoutableStops.Error() {
		t.Fatalf("result = %+v, want no-routable-stops failure", result)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("warnings %v on a failed result", result.Warnings)
	}
}

func TestOptimizeRouteGeocodesMissingCoordinates(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)
	f.provider.AddAddress("Address A", ptA)

	o := testOrder("A", ptA)
	o.Latitude, o.Longitude = nil, nil
	f.orders.orders = []*models.Order{o}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err != nil {
		t.Fatalf("OptimizeRoute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !o.HasCoordinates() {
		t.Fatal("geocoded coordinates not persisted to the order")
	}
}

func TestOptimizeRouteProviderFailureIsAnError(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(nil) // provider knows no legs
	f.seedStart("user-1", today)
	f.orders.orders = []*models.Order{testOrder("A", ptA)}

	result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if !errors.Is(err, models.ErrOptimizationFailed) {
		t.Fatalf("err = %v, want ErrOptimizationFailed", err)
	}
	if result != nil {
		t.Fatalf("result = %+v, want nil on a hard failure", result)
	}
}

func TestOptimizeRoutePersistFailureIsAnError(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)
	f.orders.orders = []*models.Order{testOrder("A", ptA)}
	f.repo.saveErr = errors.New("connection reset")

	_, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
	if err == nil || !strings.Contains(err.Error(), "persist snapshot") {
		t.Fatalf("err = %v, want a persistence error", err)
	}
}

func TestOptimizeRouteConcurrentRunsSerialized(t *testing.T) {
	today, _ := utils.ParseDate("")
	f := newRouteFixture(threeStopLegs())
	f.seedStart("user-1", today)
	f.orders.orders = []*models.Order{testOrder("A", ptA), testOrder("B", ptB)}

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.OptimizeRoute(context.Background(), "user-1", models.OptimizeRouteRequest{})
			if err == nil && !result.Success {
				err = errors.New(result.ErrorMessage)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent optimize: %v", err)
		}
	}

	snap, err := f.svc.GetRoute(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if len(snap.Points) != 2 {
		t.Fatalf("final snapshot has %d points, want 2", len(snap.Points))
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km keyedMutex

	unlockA := km.lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an independent key blocked")
	}
	unlockA()

	km.mu.Lock()
	if len(km.locks) != 0 {
		t.Fatalf("%d lock entries leaked", len(km.locks))
	}
	km.mu.Unlock()
}
