package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/utils"

	"github.com/sirupsen/logrus"
)

// CallSyncInterface is the slice of the call scheduler the order service
// needs: keeping an order's call status in step with contact edits and
// deliveries.
type CallSyncInterface interface {
	SyncContact(ctx context.Context, userID string, date time.Time, orderNumber, phone, customerName string) error
	CancelForDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error
}

// ServiceInterface defines the contract for the order service.
type ServiceInterface interface {
	AddOrder(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, date time.Time) ([]*models.Order, error)
	UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber string, req models.UpdateOrderContactRequest) (*models.Order, error)
	MarkDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error
	SetManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string, arrival time.Time) error
	ClearManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string) error
	ClearDay(ctx context.Context, userID string, date time.Time) (models.ClearDayResult, error)
}

// Service implements the order service logic.
type Service struct {
	repo     RepositoryInterface
	geocoder maps.Geocoder
	calls    CallSyncInterface
}

// NewService creates a new order service.
func NewService(repo RepositoryInterface, geocoder maps.Geocoder, calls CallSyncInterface) *Service {
	return &Service{repo: repo, geocoder: geocoder, calls: calls}
}

// AddOrder creates or refreshes a daily order. Addresses without explicit
// coordinates are geocoded best-effort; an unresolved address leaves the
// order routable-later rather than rejecting it.
func (s *Service) AddOrder(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("service.AddOrder: %w", err)
	}

	o := &models.Order{
		UserID:         userID,
		OrderNumber:    req.OrderNumber,
		OrderDate:      date,
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Comment:        req.Comment,
		Entrance:       req.Entrance,
		Apartment:      req.Apartment,
		DeliveryWindow: req.DeliveryWindow,
	}
	o.ParseDeliveryWindow()

	if !o.HasCoordinates() && s.geocoder != nil {
		p, err := s.geocoder.Geocode(ctx, o.Address)
		switch {
		case err == nil:
			o.Latitude = &p.Lat
			o.Longitude = &p.Lon
		case errors.Is(err, maps.ErrAddressNotFound):
			logrus.WithFields(logrus.Fields{
				"order_number": o.OrderNumber,
				"address":      o.Address,
			}).Warn("address could not be geocoded, order will be excluded from routing")
		default:
			logrus.WithError(err).WithField("order_number", o.OrderNumber).
				Warn("geocoding failed, order will be excluded from routing")
		}
	}

	saved, err := s.repo.Upsert(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("service.AddOrder: %w", err)
	}
	return saved, nil
}

// GetOrder retrieves one order.
func (s *Service) GetOrder(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.Order, error) {
	o, err := s.repo.FindByNumber(ctx, userID, date, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("service.GetOrder: %w", err)
	}
	return o, nil
}

// ListOrders retrieves all orders for one day.
func (s *Service) ListOrders(ctx context.Context, userID string, date time.Time) ([]*models.Order, error) {
	orders, err := s.repo.ListByDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service.ListOrders: %w", err)
	}
	return orders, nil
}

// UpdateContact changes an order's contact fields and pushes the change
// into the day's call status so a stale confirmation does not survive a
// phone number swap.
func (s *Service) UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber string, req models.UpdateOrderContactRequest) (*models.Order, error) {
	o, err := s.repo.UpdateContact(ctx, userID, date, orderNumber, req)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateContact: %w", err)
	}

	if s.calls != nil && (req.Phone != nil || req.CustomerName != nil) {
		if err := s.calls.SyncContact(ctx, userID, date, orderNumber, o.Phone, o.CustomerName); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("service.UpdateContact: sync call status: %w", err)
			}
		}
	}
	return o, nil
}

// MarkDelivered marks an order delivered and retires its call reminder.
func (s *Service) MarkDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	if err := s.repo.MarkDelivered(ctx, userID, date, orderNumber); err != nil {
		return fmt.Errorf("service.MarkDelivered: %w", err)
	}

	if s.calls != nil {
		if err := s.calls.CancelForDelivered(ctx, userID, date, orderNumber); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				logrus.WithError(err).WithField("order_number", orderNumber).
					Warn("failed to retire call status for delivered order")
			}
		}
	}
	return nil
}

// SetManualArrival pins the arrival time of one stop. The pin takes effect
// in the route on the next optimization run.
func (s *Service) SetManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string, arrival time.Time) error {
	if err := s.repo.SetManualArrival(ctx, userID, date, orderNumber, arrival); err != nil {
		return fmt.Errorf("service.SetManualArrival: %w", err)
	}
	return nil
}

// ClearManualArrival removes a manual arrival pin.
func (s *Service) ClearManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	if err := s.repo.ClearManualArrival(ctx, userID, date, orderNumber); err != nil {
		return fmt.Errorf("service.ClearManualArrival: %w", err)
	}
	return nil
}

// ClearDay wipes one day for the courier: orders, call statuses, the route
// snapshot and the start location go together so no orphaned rows survive.
func (s *Service) ClearDay(ctx context.Context, userID string, date time.Time) (models.ClearDayResult, error) {
	res, err := s.repo.DeleteDayData(ctx, userID, date)
	if err != nil {
		return models.ClearDayResult{}, fmt.Errorf("service.ClearDay: %w", err)
	}
	return res, nil
}
