package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/notify"
	"courier-assistant/pkg/utils"

	"github.com/sirupsen/logrus"
)

// PendingCallWindow bounds how far back a checker iteration reaches for
// unsent reminders. A schedule older than this (server restart, long idle)
// is not worth re-notifying.
const PendingCallWindow = 10 * time.Minute

// SettingsInterface is the per-user tunables lookup the scheduler needs.
type SettingsInterface interface {
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// OrderLookupInterface resolves the stop behind a call, used for the
// delivered short-circuit.
type OrderLookupInterface interface {
	FindByNumber(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.Order, error)
}

// UserDirectoryInterface resolves a courier account into a delivery target.
type UserDirectoryInterface interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// NotifierInterface delivers one reminder. An error leaves the call
// unchanged so the next checker iteration redelivers it.
type NotifierInterface interface {
	SendCallNotification(ctx context.Context, target notify.Target, n models.CallNotification) error
}

// ServiceInterface defines the contract for the call scheduler.
type ServiceInterface interface {
	CreateOrRefreshCallStatus(ctx context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error)
	GetCallStatus(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.CallStatus, error)
	ListCallStatuses(ctx context.Context, userID string, date time.Time) ([]*models.CallStatus, error)
	ConfirmCall(ctx context.Context, userID string, callID int64, comment string) (bool, error)
	RejectCall(ctx context.Context, userID string, callID int64) (bool, error)
	SetManualCallTime(ctx context.Context, userID string, date time.Time, orderNumber string, callTime time.Time) (*models.CallStatus, error)
	SyncContact(ctx context.Context, userID string, date time.Time, orderNumber, phone, customerName string) error
	CancelForDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error
	CheckPendingCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error)
	CheckRetryCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error)
}

// Service implements the call scheduler.
type Service struct {
	repo     RepositoryInterface
	settings SettingsInterface
	orders   OrderLookupInterface
	users    UserDirectoryInterface
	notifier NotifierInterface
}

// NewService creates a new call scheduler service.
func NewService(repo RepositoryInterface, settings SettingsInterface, orders OrderLookupInterface, users UserDirectoryInterface, notifier NotifierInterface) *Service {
	return &Service{
		repo:     repo,
		settings: settings,
		orders:   orders,
		users:    users,
		notifier: notifier,
	}
}

// CreateOrRefreshCallStatus creates the call row for a stop or refreshes
// the existing one. Route optimization calls this for every routed stop.
func (s *Service) CreateOrRefreshCallStatus(ctx context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error) {
	cs, err := s.repo.CreateOrRefresh(ctx, userID, date, p)
	if err != nil {
		return nil, fmt.Errorf("service.CreateOrRefreshCallStatus: %w", err)
	}
	return cs, nil
}

// GetCallStatus retrieves the call status of one order.
func (s *Service) GetCallStatus(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.CallStatus, error) {
	cs, err := s.repo.FindByOrder(ctx, userID, date, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("service.GetCallStatus: %w", err)
	}
	return cs, nil
}

// ListCallStatuses retrieves all call statuses of a courier's day.
func (s *Service) ListCallStatuses(ctx context.Context, userID string, date time.Time) ([]*models.CallStatus, error) {
	calls, err := s.repo.ListByDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("service.ListCallStatuses: %w", err)
	}
	return calls, nil
}

// ConfirmCall marks a call confirmed by its owning courier. The boolean
// result folds "unknown id" and "not yours" into one answer so the API
// cannot be used to probe other couriers' calls.
func (s *Service) ConfirmCall(ctx context.Context, userID string, callID int64, comment string) (bool, error) {
	cs, err := s.repo.FindByID(ctx, callID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service.ConfirmCall: %w", err)
	}
	if cs.UserID != userID {
		return false, nil
	}
	if !cs.Status.CanTransitionTo(models.CallConfirmed) {
		return false, models.ErrInvalidTransition
	}

	if err := s.repo.Confirm(ctx, callID, userID, comment); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service.ConfirmCall: %w", err)
	}
	return true, nil
}

// RejectCall records a customer not picking up. The attempt counter and
// the per-user retry policy decide whether the call waits for another
// attempt or fails for good.
func (s *Service) RejectCall(ctx context.Context, userID string, callID int64) (bool, error) {
	cs, err := s.repo.FindByID(ctx, callID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service.RejectCall: %w", err)
	}
	if cs.UserID != userID {
		return false, nil
	}
	if !cs.Status.CanTransitionTo(models.CallRejected) {
		return false, models.ErrInvalidTransition
	}

	settings, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("service.RejectCall: load settings: %w", err)
	}

	nextAttempt := time.Now().Add(time.Duration(settings.CallRetryIntervalMinutes) * time.Minute)
	if _, err := s.repo.Reject(ctx, callID, userID, nextAttempt, settings.CallMaxAttempts); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service.RejectCall: %w", err)
	}
	return true, nil
}

// SetManualCallTime pins the call time of one order, overriding whatever
// the optimizer derived.
func (s *Service) SetManualCallTime(ctx context.Context, userID string, date time.Time, orderNumber string, callTime time.Time) (*models.CallStatus, error) {
	cs, err := s.repo.SetManualCallTime(ctx, userID, date, orderNumber, callTime)
	if err != nil {
		return nil, fmt.Errorf("service.SetManualCallTime: %w", err)
	}
	return cs, nil
}

// SyncContact pushes changed order contact data into the day's call row.
func (s *Service) SyncContact(ctx context.Context, userID string, date time.Time, orderNumber, phone, customerName string) error {
	if err := s.repo.UpdateContact(ctx, userID, date, orderNumber, phone, customerName); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("service.SyncContact: %w", err)
	}
	return nil
}

// CancelForDelivered retires the call of a delivered order.
func (s *Service) CancelForDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	err := s.repo.ForceFailForOrder(ctx, userID, date, orderNumber)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("service.CancelForDelivered: %w", err)
	}
	return err
}

// CheckPendingCalls selects the unsent calls due in the trailing window
// and pushes a reminder for each. Per-item failures are logged and
// skipped; one bad row never halts the run.
func (s *Service) CheckPendingCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error) {
	date := utils.Midnight(now)
	due, err := s.repo.ListPendingDue(ctx, date, now.Add(-PendingCallWindow), now)
	if err != nil {
		return nil, fmt.Errorf("service.CheckPendingCalls: %w", err)
	}
	return s.dispatch(ctx, due, false), nil
}

// CheckRetryCalls selects rejected calls whose retry is due and pushes a
// repeat reminder for each, honoring the per-user attempt cap.
func (s *Service) CheckRetryCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error) {
	date := utils.Midnight(now)
	due, err := s.repo.ListRetryDue(ctx, date, now)
	if err != nil {
		return nil, fmt.Errorf("service.CheckRetryCalls: %w", err)
	}
	return s.dispatch(ctx, due, true), nil
}

// dispatch walks one batch of due calls: short-circuits delivered stops,
// filters by per-user policy, sends, and marks sent only on delivery.
func (s *Service) dispatch(ctx context.Context, due []*models.CallStatus, retry bool) []models.CallNotification {
	var sent []models.CallNotification
	for _, cs := range due {
		log := logrus.WithFields(logrus.Fields{
			"call_id":      cs.ID,
			"user_id":      cs.UserID,
			"order_number": cs.OrderNumber,
		})

		order, err := s.orders.FindByNumber(ctx, cs.UserID, cs.CallDate, cs.OrderNumber)
		if err != nil {
			log.WithError(err).Warn("order lookup failed, skipping call")
			continue
		}
		if order.Status == models.OrderStatusDelivered {
			if err := s.repo.ForceFailForOrder(ctx, cs.UserID, cs.CallDate, cs.OrderNumber); err != nil && !errors.Is(err, models.ErrNotFound) {
				log.WithError(err).Warn("failed to retire call for delivered order")
			}
			continue
		}

		settings, err := s.settings.GetSettings(ctx, cs.UserID)
		if err != nil {
			log.WithError(err).Warn("settings lookup failed, skipping call")
			continue
		}
		if !settings.NotificationsEnabled {
			continue
		}
		if retry && cs.Attempts >= settings.CallMaxAttempts {
			continue
		}

		user, err := s.users.FindByID(ctx, cs.UserID)
		if err != nil {
			log.WithError(err).Warn("user lookup failed, skipping call")
			continue
		}

		n := buildNotification(cs, order.Comment, retry)
		target := notify.Target{
			TelegramChatID: user.TelegramChatID,
			Email:          user.Email,
			Name:           user.Nickname,
		}
		if err := s.notifier.SendCallNotification(ctx, target, n); err != nil {
			log.WithError(err).Warn("reminder delivery failed, will retry next iteration")
			continue
		}
		if err := s.repo.MarkSent(ctx, cs.ID); err != nil {
			log.WithError(err).Warn("failed to mark call sent")
			continue
		}
		sent = append(sent, n)
	}
	return sent
}

// buildNotification renders the reminder text for one due call. The order
// comment rides along so the courier sees entrance codes and similar notes
// right in the reminder.
func buildNotification(cs *models.CallStatus, comment string, retry bool) models.CallNotification {
	arrival := cs.ResolvedArrival()

	msg := fmt.Sprintf("Time to call the customer for order %s", cs.OrderNumber)
	if retry {
		msg = fmt.Sprintf("Retry call for order %s (attempt %d)", cs.OrderNumber, cs.Attempts+1)
	}
	if cs.CustomerName != "" {
		msg += fmt.Sprintf("\n%s", cs.CustomerName)
	}
	msg += fmt.Sprintf("\nPhone: %s", cs.Phone)
	if arrival != nil {
		msg += fmt.Sprintf("\nEstimated arrival: %s", arrival.Format("15:04"))
	}
	if comment != "" {
		msg += fmt.Sprintf("\nComment: %s", comment)
	}

	return models.CallNotification{
		CallStatusID: cs.ID,
		UserID:       cs.UserID,
		OrderNumber:  cs.OrderNumber,
		CallTime:     cs.CallTime,
		Phone:        cs.Phone,
		CustomerName: cs.CustomerName,
		ArrivalTime:  arrival,
		Comment:      comment,
		Message:      msg,
		Attempts:     cs.Attempts,
		IsRetry:      retry,
	}
}
