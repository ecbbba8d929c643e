package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-assistant/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the call-status repository.
// Rows are keyed by (user_id, call_date, order_number); every guarded
// update carries its expected prior state in the WHERE clause so a
// concurrent transition loses cleanly instead of clobbering.
type RepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*models.CallStatus, error)
	FindByOrder(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.CallStatus, error)
	ListByDate(ctx context.Context, userID string, date time.Time) ([]*models.CallStatus, error)
	CreateOrRefresh(ctx context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error)
	MarkSent(ctx context.Context, id int64) error
	Confirm(ctx context.Context, id int64, userID, comment string) error
	Reject(ctx context.Context, id int64, userID string, nextAttempt time.Time, maxAttempts int) (*models.CallStatus, error)
	ForceFailForOrder(ctx context.Context, userID string, date time.Time, orderNumber string) error
	SetManualCallTime(ctx context.Context, userID string, date time.Time, orderNumber string, callTime time.Time) (*models.CallStatus, error)
	UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber, phone, customerName string) error
	ListPendingDue(ctx context.Context, date time.Time, windowStart, now time.Time) ([]*models.CallStatus, error)
	ListRetryDue(ctx context.Context, date time.Time, now time.Time) ([]*models.CallStatus, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new call-status repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const callColumns = `id, user_id, order_number, call_date, call_time, arrival_time, manual_arrival_time, phone, customer_name, status, attempts, next_attempt_time, is_manual_call, is_manual_arrival, confirmation_comment, created_at, updated_at`

func scanCall(row pgx.Row) (*models.CallStatus, error) {
	var cs models.CallStatus
	err := row.Scan(
		&cs.ID,
		&cs.UserID,
		&cs.OrderNumber,
		&cs.CallDate,
		&cs.CallTime,
		&cs.ArrivalTime,
		&cs.ManualArrivalTime,
		&cs.Phone,
		&cs.CustomerName,
		&cs.Status,
		&cs.Attempts,
		&cs.NextAttemptTime,
		&cs.IsManualCall,
		&cs.IsManualArrival,
		&cs.ConfirmationComment,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan call status: %w", err)
	}
	return &cs, nil
}

// FindByID retrieves one call status by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.CallStatus, error) {
	query := `SELECT ` + callColumns + ` FROM call_statuses WHERE id = $1`
	cs, err := scanCall(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindCallByID: %w", err)
	}
	return cs, nil
}

// FindByOrder retrieves the call status of one order for one day.
func (r *Repository) FindByOrder(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.CallStatus, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_statuses
		WHERE user_id = $1 AND call_date = $2 AND order_number = $3`

	cs, err := scanCall(r.db.QueryRow(ctx, query, userID, date, orderNumber))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindCallByOrder: %w", err)
	}
	return cs, nil
}

// ListByDate retrieves all of a courier's call statuses for one day,
// ordered by scheduled call time.
func (r *Repository) ListByDate(ctx context.Context, userID string, date time.Time) ([]*models.CallStatus, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_statuses
		WHERE user_id = $1 AND call_date = $2
		ORDER BY call_time ASC`

	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("repository.ListCallsByDate.Query: %w", err)
	}
	defer rows.Close()

	var calls []*models.CallStatus
	for rows.Next() {
		cs, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListCallsByDate.Scan: %w", err)
		}
		calls = append(calls, cs)
	}
	return calls, nil
}

// CreateOrRefresh inserts a call status for a stop or refreshes the
// existing row in place. A row whose reminder was already sent drops back
// to pending with zeroed attempts, since the notification it sent is now
// stale. A manual call-time override on the existing row survives the
// refresh; confirmed and rejected rows keep their state and attempt count.
func (r *Repository) CreateOrRefresh(ctx context.Context, userID string, date time.Time, p models.CreateCallStatusParams) (*models.CallStatus, error) {
	query := `
		INSERT INTO call_statuses (user_id, order_number, call_date, call_time, arrival_time, manual_arrival_time, phone, customer_name, status, attempts, is_manual_call, is_manual_arrival)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 0, $9, $10)
		ON CONFLICT (user_id, call_date, order_number) DO UPDATE SET
			call_time = CASE WHEN call_statuses.is_manual_call AND NOT EXCLUDED.is_manual_call
				THEN call_statuses.call_time ELSE EXCLUDED.call_time END,
			arrival_time = EXCLUDED.arrival_time,
			manual_arrival_time = EXCLUDED.manual_arrival_time,
			phone = EXCLUDED.phone,
			customer_name = EXCLUDED.customer_name,
			is_manual_call = call_statuses.is_manual_call OR EXCLUDED.is_manual_call,
			is_manual_arrival = EXCLUDED.is_manual_arrival,
			status = CASE WHEN call_statuses.status = 'sent' THEN 'pending' ELSE call_statuses.status END,
			attempts = CASE WHEN call_statuses.status = 'sent' THEN 0 ELSE call_statuses.attempts END,
			next_attempt_time = CASE WHEN call_statuses.status = 'sent' THEN NULL ELSE call_statuses.next_attempt_time END,
			updated_at = NOW()
		RETURNING ` + callColumns

	row := r.db.QueryRow(ctx, query,
		userID, p.OrderNumber, date,
		p.CallTime, p.ArrivalTime, p.ManualArrivalTime,
		p.Phone, p.CustomerName,
		p.IsManualCall, p.IsManualArrival,
	)
	cs, err := scanCall(row)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateOrRefreshCall: %w", err)
	}
	return cs, nil
}

// MarkSent advances a call to sent after its reminder was delivered.
// Only pending and rejected calls can be marked sent.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE call_statuses
		SET status = 'sent', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'rejected')`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("repository.MarkSent: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// Confirm moves a non-terminal call owned by userID to confirmed.
// ErrNotFound covers both a missing row and an ownership mismatch.
func (r *Repository) Confirm(ctx context.Context, id int64, userID, comment string) error {
	query := `
		UPDATE call_statuses
		SET status = 'confirmed', confirmation_comment = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status NOT IN ('confirmed', 'failed')`

	cmdTag, err := r.db.Exec(ctx, query, comment, id, userID)
	if err != nil {
		return fmt.Errorf("repository.ConfirmCall: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Reject records a failed call attempt on a sent call owned by userID.
// The attempt counter increments atomically; hitting maxAttempts turns the
// call failed instead of rejected, and failed rows never get a next
// attempt time.
func (r *Repository) Reject(ctx context.Context, id int64, userID string, nextAttempt time.Time, maxAttempts int) (*models.CallStatus, error) {
	query := `
		UPDATE call_statuses
		SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'rejected' END,
			next_attempt_time = CASE WHEN attempts + 1 >= $1 THEN NULL ELSE $2 END,
			updated_at = NOW()
		WHERE id = $3 AND user_id = $4 AND status = 'sent'
		RETURNING ` + callColumns

	cs, err := scanCall(r.db.QueryRow(ctx, query, maxAttempts, nextAttempt, id, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.RejectCall: %w", err)
	}
	return cs, nil
}

// ForceFailForOrder retires the call of a delivered order. The attempt
// sentinel keeps the row out of every retry query.
func (r *Repository) ForceFailForOrder(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	query := `
		UPDATE call_statuses
		SET status = 'failed', attempts = $1, next_attempt_time = NULL, updated_at = NOW()
		WHERE user_id = $2 AND call_date = $3 AND order_number = $4 AND status NOT IN ('confirmed', 'failed')`

	cmdTag, err := r.db.Exec(ctx, query, models.DeliveredAttemptsSentinel, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.ForceFailForOrder: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetManualCallTime pins the call time of one order. The pin survives
// subsequent route refreshes.
func (r *Repository) SetManualCallTime(ctx context.Context, userID string, date time.Time, orderNumber string, callTime time.Time) (*models.CallStatus, error) {
	query := `
		UPDATE call_statuses
		SET call_time = $1, is_manual_call = TRUE, updated_at = NOW()
		WHERE user_id = $2 AND call_date = $3 AND order_number = $4
		RETURNING ` + callColumns

	cs, err := scanCall(r.db.QueryRow(ctx, query, callTime, userID, date, orderNumber))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.SetManualCallTime: %w", err)
	}
	return cs, nil
}

// UpdateContact propagates changed order contact data into the call row.
// A reminder already sent or confirmed against the old phone number is
// stale, so both states drop back to pending with zeroed attempts.
func (r *Repository) UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber, phone, customerName string) error {
	query := `
		UPDATE call_statuses
		SET phone = $1, customer_name = $2,
			status = CASE WHEN status IN ('sent', 'confirmed') THEN 'pending' ELSE status END,
			attempts = CASE WHEN status IN ('sent', 'confirmed') THEN 0 ELSE attempts END,
			next_attempt_time = CASE WHEN status IN ('sent', 'confirmed') THEN NULL ELSE next_attempt_time END,
			updated_at = NOW()
		WHERE user_id = $3 AND call_date = $4 AND order_number = $5`

	cmdTag, err := r.db.Exec(ctx, query, phone, customerName, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.UpdateCallContact: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListPendingDue returns pending calls across all users whose scheduled
// time falls inside the trailing due window. The lower bound keeps a
// restarted checker from re-notifying ancient schedules.
func (r *Repository) ListPendingDue(ctx context.Context, date time.Time, windowStart, now time.Time) ([]*models.CallStatus, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_statuses
		WHERE call_date = $1 AND status = 'pending' AND call_time >= $2 AND call_time <= $3
		ORDER BY call_time ASC`

	return r.listDue(ctx, query, date, windowStart, now)
}

// ListRetryDue returns rejected calls across all users whose next attempt
// is due. The per-user attempt cap is applied by the caller; the sentinel
// guard only keeps retired rows out.
func (r *Repository) ListRetryDue(ctx context.Context, date time.Time, now time.Time) ([]*models.CallStatus, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_statuses
		WHERE call_date = $1 AND status = 'rejected'
			AND next_attempt_time IS NOT NULL AND next_attempt_time <= $2
			AND attempts < $3
		ORDER BY next_attempt_time ASC`

	return r.listDue(ctx, query, date, now, models.DeliveredAttemptsSentinel)
}

func (r *Repository) listDue(ctx context.Context, query string, args ...interface{}) ([]*models.CallStatus, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.ListDueCalls.Query: %w", err)
	}
	defer rows.Close()

	var calls []*models.CallStatus
	for rows.Next() {
		cs, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListDueCalls.Scan: %w", err)
		}
		calls = append(calls, cs)
	}
	return calls, nil
}
