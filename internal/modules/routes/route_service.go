package route

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"courier-assistant/internal/metrics"
	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/utils"

	"github.com/sirupsen/logrus"
)

// defaultStartHour is the assumed shift start when no start time is saved.
const defaultStartHour = 9

// OrderSourceInterface is the slice of the order module the optimizer
// orchestration reads from.
type OrderSourceInterface interface {
	ListByDate(ctx context.Context, userID string, date time.Time) ([]*models.Order, error)
	UpdateCoordinates(ctx context.Context, userID string, date time.Time, orderNumber string, lat, lon float64) error
}

// CallRefreshInterface is the slice of the call scheduler that keeps call
// rows in step with a freshly computed route.
type CallRefreshInterface interface {
	CreateOrRefreshCallStatus(ctx context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error)
}

// SettingsInterface is the per-user tunables lookup.
type SettingsInterface interface {
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// ServiceInterface defines the contract for the route service.
type ServiceInterface interface {
	OptimizeRoute(ctx context.Context, userID string, req models.OptimizeRouteRequest) (*models.RouteResult, error)
	GetRoute(ctx context.Context, userID string, date time.Time) (*models.RouteSnapshot, error)
	SaveStartLocation(ctx context.Context, userID string, req models.SaveStartLocationRequest) (*models.StartLocation, error)
	GetStartLocation(ctx context.Context, userID string, date time.Time) (*models.StartLocation, error)
}

// Service implements route orchestration: it loads the day's state, runs
// the optimizer, persists the snapshot, and refreshes call statuses.
type Service struct {
	repo      RepositoryInterface
	orders    OrderSourceInterface
	calls     CallRefreshInterface
	settings  SettingsInterface
	geocoder  maps.Geocoder
	optimizer *Optimizer

	// dayLocks serializes optimize+persist per (user, date); readers of a
	// snapshot never observe a half-written replacement.
	dayLocks keyedMutex
}

// NewService creates a new route service.
func NewService(repo RepositoryInterface, orders OrderSourceInterface, calls CallRefreshInterface, settings SettingsInterface, provider maps.DistanceTimeProvider, geocoder maps.Geocoder) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		calls:     calls,
		settings:  settings,
		geocoder:  geocoder,
		optimizer: NewOptimizer(provider),
	}
}

// OptimizeRoute computes and persists the route for one day. Input
// problems (nothing to route, no start location) come back inside the
// RouteResult so callers always branch on Success; provider and
// persistence failures are returned as errors.
func (s *Service) OptimizeRoute(ctx context.Context, userID string, req models.OptimizeRouteRequest) (*models.RouteResult, error) {
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("service.OptimizeRoute: %w", err)
	}

	unlock := s.dayLocks.lock(userID + "|" + date.Format(utils.DateLayout))
	defer unlock()

	started := time.Now()
	result, err := s.optimizeLocked(ctx, userID, date, req.RecalcWithoutManual)
	metrics.OptimizeDuration.Observe(time.Since(started).Seconds())
	switch {
	case err != nil:
		metrics.OptimizeRuns.WithLabelValues("error").Inc()
	case !result.Success:
		metrics.OptimizeRuns.WithLabelValues("rejected").Inc()
	default:
		metrics.OptimizeRuns.WithLabelValues("success").Inc()
	}
	return result, err
}

func (s *Service) optimizeLocked(ctx context.Context, userID string, date time.Time, recalcWithoutManual bool) (*models.RouteResult, error) {
	settings, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.OptimizeRoute: load settings: %w", err)
	}

	loc, err := s.repo.GetStartLocation(ctx, userID, date)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return failure(models.ErrStartLocationMissing), nil
		}
		return nil, fmt.Errorf("service.OptimizeRoute: load start location: %w", err)
	}
	start, err := s.resolveStart(ctx, loc)
	if err != nil {
		if errors.Is(err, maps.ErrAddressNotFound) {
			return failure(models.ErrStartLocationMissing), nil
		}
		return nil, fmt.Errorf("service.OptimizeRoute: resolve start: %w", err)
	}

	orders, err := s.orders.ListByDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service.OptimizeRoute: load orders: %w", err)
	}

	var active []*models.Order
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return failure(models.ErrNoActiveOrders), nil
	}

	var warnings []string
	stops := make([]*models.Order, 0, len(active))
	for _, o := range active {
		if !o.HasCoordinates() {
			if ok := s.tryGeocode(ctx, o); !ok {
				warnings = append(warnings, fmt.Sprintf("order %s: address could not be resolved, excluded from route", o.OrderNumber))
				continue
			}
		}
		stops = append(stops, o)
	}
	if len(stops) == 0 {
		return failure(models.ErrNoRoutableStops), nil
	}

	now := time.Now()
	// Shift starts at 09:00 of the route day unless the courier set an
	// explicit start time. Either way a recalc mid-day never plans
	// arrivals in the past.
	startTime := time.Date(date.Year(), date.Month(), date.Day(), defaultStartHour, 0, 0, 0, date.Location())
	if loc.StartTime != nil {
		startTime = *loc.StartTime
	}
	if startTime.Before(now) {
		startTime = now
	}

	snap, planWarnings, err := s.optimizer.Plan(ctx, PlanInput{
		UserID:     userID,
		Date:       date,
		Stops:      stops,
		Start:      start,
		StartTime:  startTime,
		Settings:   *settings,
		Now:        now,
		KeepManual: !recalcWithoutManual,
	})
	if err != nil {
		if errors.Is(err, models.ErrNoActiveOrders) {
			return failure(models.ErrNoActiveOrders), nil
		}
		return nil, fmt.Errorf("service.OptimizeRoute: %w", err)
	}
	warnings = append(warnings, planWarnings...)

	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("service.OptimizeRoute: persist snapshot: %w", err)
	}

	byNumber := make(map[string]*models.Order, len(stops))
	for _, o := range stops {
		byNumber[o.OrderNumber] = o
	}
	for i := range snap.Points {
		p := &snap.Points[i]
		o := byNumber[p.OrderNumber]

		arrival := p.EstimatedArrival
		params := models.CreateCallStatusParams{
			OrderNumber:     p.OrderNumber,
			CallTime:        p.CallTime,
			Phone:           o.Phone,
			CustomerName:    o.CustomerName,
			ArrivalTime:     &arrival,
			IsManualArrival: p.ManualArrival,
		}
		if p.ManualArrival {
			params.ManualArrivalTime = o.ManualArrival
		}
		if _, err := s.calls.CreateOrRefreshCallStatus(ctx, userID, date, params); err != nil {
			return nil, fmt.Errorf("service.OptimizeRoute: refresh call status for order %s: %w", p.OrderNumber, err)
		}
	}

	return &models.RouteResult{Success: true, Route: snap, Warnings: warnings}, nil
}

// tryGeocode resolves and persists missing coordinates for one order.
func (s *Service) tryGeocode(ctx context.Context, o *models.Order) bool {
	if s.geocoder == nil {
		return false
	}
	p, err := s.geocoder.Geocode(ctx, o.Address)
	if err != nil {
		logrus.WithError(err).WithField("order_number", o.OrderNumber).
			Warn("geocoding failed during optimization")
		return false
	}
	o.Latitude = &p.Lat
	o.Longitude = &p.Lon
	if err := s.orders.UpdateCoordinates(ctx, o.UserID, o.OrderDate, o.OrderNumber, p.Lat, p.Lon); err != nil {
		logrus.WithError(err).WithField("order_number", o.OrderNumber).
			Warn("failed to persist geocoded coordinates")
	}
	return true
}

// resolveStart turns a stored start location into coordinates, geocoding
// the address form on demand.
func (s *Service) resolveStart(ctx context.Context, loc *models.StartLocation) (maps.Point, error) {
	if loc.Latitude != nil && loc.Longitude != nil {
		return maps.Point{Lat: *loc.Latitude, Lon: *loc.Longitude}, nil
	}
	if loc.LocationType == models.StartLocationAddress && loc.Address != "" && s.geocoder != nil {
		return s.geocoder.Geocode(ctx, loc.Address)
	}
	return maps.Point{}, maps.ErrAddressNotFound
}

// GetRoute returns the persisted snapshot for one day.
func (s *Service) GetRoute(ctx context.Context, userID string, date time.Time) (*models.RouteSnapshot, error) {
	snap, err := s.repo.GetSnapshot(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service.GetRoute: %w", err)
	}
	return snap, nil
}

// SaveStartLocation stores the route origin for one day.
func (s *Service) SaveStartLocation(ctx context.Context, userID string, req models.SaveStartLocationRequest) (*models.StartLocation, error) {
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("service.SaveStartLocation: %w", err)
	}

	loc := &models.StartLocation{
		UserID:       userID,
		LocationDate: date,
		LocationType: req.LocationType,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		StartTime:    req.StartTime,
	}
	saved, err := s.repo.SaveStartLocation(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("service.SaveStartLocation: %w", err)
	}
	return saved, nil
}

// GetStartLocation returns the stored route origin for one day.
func (s *Service) GetStartLocation(ctx context.Context, userID string, date time.Time) (*models.StartLocation, error) {
	loc, err := s.repo.GetStartLocation(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service.GetStartLocation: %w", err)
	}
	return loc, nil
}

// failure wraps a validation sentinel into a caller-facing result.
func failure(err error) *models.RouteResult {
	return &models.RouteResult{Success: false, ErrorMessage: err.Error()}
}

// keyedMutex hands out one mutex per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns its release func. Entries
// are dropped once the last holder releases, so the map stays bounded by
// in-flight optimizations.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*entry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
