package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courier-assistant/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the route repository: start
// locations and route snapshots, both keyed by (user_id, date). A snapshot
// is replaced wholesale on every re-optimization.
type RepositoryInterface interface {
	SaveStartLocation(ctx context.Context, loc *models.StartLocation) (*models.StartLocation, error)
	GetStartLocation(ctx context.Context, userID string, date time.Time) (*models.StartLocation, error)
	SaveSnapshot(ctx context.Context, snap *models.RouteSnapshot) error
	GetSnapshot(ctx context.Context, userID string, date time.Time) (*models.RouteSnapshot, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new route repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// SaveStartLocation upserts the route origin for one day.
func (r *Repository) SaveStartLocation(ctx context.Context, loc *models.StartLocation) (*models.StartLocation, error) {
	query := `
		INSERT INTO start_locations (user_id, location_date, location_type, address, latitude, longitude, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, location_date) DO UPDATE SET
			location_type = EXCLUDED.location_type,
			address = EXCLUDED.address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			start_time = EXCLUDED.start_time,
			updated_at = NOW()
		RETURNING id, user_id, location_date, location_type, address, latitude, longitude, start_time, created_at, updated_at`

	row := r.db.QueryRow(ctx, query,
		loc.UserID, loc.LocationDate, loc.LocationType,
		loc.Address, loc.Latitude, loc.Longitude, loc.StartTime,
	)
	saved, err := scanStartLocation(row)
	if err != nil {
		return nil, fmt.Errorf("repository.SaveStartLocation: %w", err)
	}
	return saved, nil
}

// GetStartLocation retrieves the route origin for one day.
func (r *Repository) GetStartLocation(ctx context.Context, userID string, date time.Time) (*models.StartLocation, error) {
	query := `
		SELECT id, user_id, location_date, location_type, address, latitude, longitude, start_time, created_at, updated_at
		FROM start_locations
		WHERE user_id = $1 AND location_date = $2`

	loc, err := scanStartLocation(r.db.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetStartLocation: %w", err)
	}
	return loc, nil
}

func scanStartLocation(row pgx.Row) (*models.StartLocation, error) {
	var loc models.StartLocation
	err := row.Scan(
		&loc.ID,
		&loc.UserID,
		&loc.LocationDate,
		&loc.LocationType,
		&loc.Address,
		&loc.Latitude,
		&loc.Longitude,
		&loc.StartTime,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan start location: %w", err)
	}
	return &loc, nil
}

// SaveSnapshot replaces the persisted route for one day. Points are stored
// as a JSON document; the sequence doubles as a flat column for queries.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *models.RouteSnapshot) error {
	pointsJSON, err := json.Marshal(snap.Points)
	if err != nil {
		return fmt.Errorf("repository.SaveSnapshot: encode points: %w", err)
	}

	query := `
		INSERT INTO route_snapshots (id, user_id, route_date, points, order_sequence, total_distance_km, total_time_min, estimated_completion, optimized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, route_date) DO UPDATE SET
			id = EXCLUDED.id,
			points = EXCLUDED.points,
			order_sequence = EXCLUDED.order_sequence,
			total_distance_km = EXCLUDED.total_distance_km,
			total_time_min = EXCLUDED.total_time_min,
			estimated_completion = EXCLUDED.estimated_completion,
			optimized_at = EXCLUDED.optimized_at`

	_, err = r.db.Exec(ctx, query,
		snap.ID, snap.UserID, snap.RouteDate,
		pointsJSON, snap.OrderSequence,
		snap.TotalDistanceKm, snap.TotalTimeMin,
		snap.EstimatedCompletion, snap.OptimizedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.SaveSnapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the persisted route for one day.
func (r *Repository) GetSnapshot(ctx context.Context, userID string, date time.Time) (*models.RouteSnapshot, error) {
	query := `
		SELECT id, user_id, route_date, points, order_sequence, total_distance_km, total_time_min, estimated_completion, optimized_at
		FROM route_snapshots
		WHERE user_id = $1 AND route_date = $2`

	var (
		snap       models.RouteSnapshot
		pointsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, userID, date).Scan(
		&snap.ID,
		&snap.UserID,
		&snap.RouteDate,
		&pointsJSON,
		&snap.OrderSequence,
		&snap.TotalDistanceKm,
		&snap.TotalTimeMin,
		&snap.EstimatedCompletion,
		&snap.OptimizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetSnapshot: %w", err)
	}
	if err := json.Unmarshal(pointsJSON, &snap.Points); err != nil {
		return nil, fmt.Errorf("repository.GetSnapshot: decode points: %w", err)
	}
	return &snap, nil
}
