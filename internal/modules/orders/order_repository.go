package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier-assistant/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the order repository.
// Orders are keyed by (user_id, order_date, order_number).
type RepositoryInterface interface {
	Upsert(ctx context.Context, o *models.Order) (*models.Order, error)
	FindByNumber(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.Order, error)
	ListByDate(ctx context.Context, userID string, date time.Time) ([]*models.Order, error)
	UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber string, req models.UpdateOrderContactRequest) (*models.Order, error)
	UpdateCoordinates(ctx context.Context, userID string, date time.Time, orderNumber string, lat, lon float64) error
	MarkDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error
	SetManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string, arrival time.Time) error
	ClearManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string) error
	DeleteDayData(ctx context.Context, userID string, date time.Time) (models.ClearDayResult, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new order repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const orderColumns = `id, user_id, order_number, order_date, customer_name, phone, address, latitude, longitude, comment, entrance, apartment, delivery_window, window_start, window_end, status, manual_arrival, is_manual_arrival, created_at, updated_at`

// scanOrder is a helper function to scan a row into an Order model.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.OrderDate,
		&o.CustomerName,
		&o.Phone,
		&o.Address,
		&o.Latitude,
		&o.Longitude,
		&o.Comment,
		&o.Entrance,
		&o.Apartment,
		&o.DeliveryWindow,
		&o.WindowStart,
		&o.WindowEnd,
		&o.Status,
		&o.ManualArrival,
		&o.IsManualArrival,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

// Upsert inserts a new daily order or refreshes an existing one in place.
// Delivery progress (status, manual arrival) survives a re-import of the
// same order number.
func (r *Repository) Upsert(ctx context.Context, o *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (user_id, order_number, order_date, customer_name, phone, address, latitude, longitude, comment, entrance, apartment, delivery_window, window_start, window_end, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'pending')
		ON CONFLICT (user_id, order_date, order_number) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			latitude = COALESCE(EXCLUDED.latitude, orders.latitude),
			longitude = COALESCE(EXCLUDED.longitude, orders.longitude),
			comment = EXCLUDED.comment,
			entrance = EXCLUDED.entrance,
			apartment = EXCLUDED.apartment,
			delivery_window = EXCLUDED.delivery_window,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			updated_at = NOW()
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query,
		o.UserID, o.OrderNumber, o.OrderDate,
		o.CustomerName, o.Phone, o.Address,
		o.Latitude, o.Longitude,
		o.Comment, o.Entrance, o.Apartment,
		o.DeliveryWindow, o.WindowStart, o.WindowEnd,
	)
	saved, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("repository.UpsertOrder: %w", err)
	}
	return saved, nil
}

// FindByNumber retrieves one order by its day-scoped identity.
func (r *Repository) FindByNumber(ctx context.Context, userID string, date time.Time, orderNumber string) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND order_date = $2 AND order_number = $3`

	o, err := scanOrder(r.db.QueryRow(ctx, query, userID, date, orderNumber))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByNumber: %w", err)
	}
	return o, nil
}

// ListByDate retrieves all of a courier's orders for one day.
func (r *Repository) ListByDate(ctx context.Context, userID string, date time.Time) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND order_date = $2
		ORDER BY order_number ASC`

	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByDate.Query: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListByDate.Scan: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateContact changes the customer-facing fields of one order.
func (r *Repository) UpdateContact(ctx context.Context, userID string, date time.Time, orderNumber string, req models.UpdateOrderContactRequest) (*models.Order, error) {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	if req.CustomerName != nil {
		setClauses = append(setClauses, fmt.Sprintf("customer_name = $%d", argIdx))
		args = append(args, *req.CustomerName)
		argIdx++
	}
	if req.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, *req.Phone)
		argIdx++
	}
	if req.Comment != nil {
		setClauses = append(setClauses, fmt.Sprintf("comment = $%d", argIdx))
		args = append(args, *req.Comment)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.FindByNumber(ctx, userID, date, orderNumber)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID, date, orderNumber)

	query := fmt.Sprintf(`
		UPDATE orders SET %s
		WHERE user_id = $%d AND order_date = $%d AND order_number = $%d
		RETURNING `+orderColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, argIdx+2)

	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.UpdateContact: %w", err)
	}
	return o, nil
}

// UpdateCoordinates stores the geocoded position of one order.
func (r *Repository) UpdateCoordinates(ctx context.Context, userID string, date time.Time, orderNumber string, lat, lon float64) error {
	query := `
		UPDATE orders
		SET latitude = $1, longitude = $2, updated_at = NOW()
		WHERE user_id = $3 AND order_date = $4 AND order_number = $5`

	cmdTag, err := r.db.Exec(ctx, query, lat, lon, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.UpdateCoordinates: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkDelivered marks one order as delivered.
func (r *Repository) MarkDelivered(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	query := `
		UPDATE orders
		SET status = 'delivered', updated_at = NOW()
		WHERE user_id = $1 AND order_date = $2 AND order_number = $3`

	cmdTag, err := r.db.Exec(ctx, query, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.MarkDelivered: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetManualArrival pins the arrival time of one order.
func (r *Repository) SetManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string, arrival time.Time) error {
	query := `
		UPDATE orders
		SET manual_arrival = $1, is_manual_arrival = TRUE, updated_at = NOW()
		WHERE user_id = $2 AND order_date = $3 AND order_number = $4`

	cmdTag, err := r.db.Exec(ctx, query, arrival, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.SetManualArrival: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearManualArrival removes a manual arrival pin.
func (r *Repository) ClearManualArrival(ctx context.Context, userID string, date time.Time, orderNumber string) error {
	query := `
		UPDATE orders
		SET manual_arrival = NULL, is_manual_arrival = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND order_date = $2 AND order_number = $3`

	cmdTag, err := r.db.Exec(ctx, query, userID, date, orderNumber)
	if err != nil {
		return fmt.Errorf("repository.ClearManualArrival: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteDayData removes all of a courier's data for one day in a single
// transaction: the orders plus the call statuses, route snapshots and start
// locations tied to that date. Returns per-table row counts.
func (r *Repository) DeleteDayData(ctx context.Context, userID string, date time.Time) (models.ClearDayResult, error) {
	var res models.ClearDayResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("repository.DeleteDayData: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	deletes := []struct {
		query string
		count *int64
	}{
		{`DELETE FROM call_statuses WHERE user_id = $1 AND call_date = $2`, &res.CallStatuses},
		{`DELETE FROM route_snapshots WHERE user_id = $1 AND route_date = $2`, &res.RouteSnapshots},
		{`DELETE FROM start_locations WHERE user_id = $1 AND location_date = $2`, &res.StartLocations},
		{`DELETE FROM orders WHERE user_id = $1 AND order_date = $2`, &res.Orders},
	}
	for _, d := range deletes {
		cmdTag, err := tx.Exec(ctx, d.query, userID, date)
		if err != nil {
			return models.ClearDayResult{}, fmt.Errorf("repository.DeleteDayData: %w", err)
		}
		*d.count = cmdTag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return models.ClearDayResult{}, fmt.Errorf("repository.DeleteDayData: commit: %w", err)
	}
	return res, nil
}
