package settings

import (
	"context"
	"errors"
	"fmt"

	"courier-assistant/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the settings repository.
type RepositoryInterface interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Upsert(ctx context.Context, s models.UserSettings) (*models.UserSettings, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new settings repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const settingsColumns = `user_id, call_advance_minutes, call_retry_interval_minutes, call_max_attempts, service_time_minutes, parking_time_minutes, notifications_enabled, updated_at`

func scanSettings(row pgx.Row) (*models.UserSettings, error) {
	var s models.UserSettings
	err := row.Scan(
		&s.UserID,
		&s.CallAdvanceMinutes,
		&s.CallRetryIntervalMinutes,
		&s.CallMaxAttempts,
		&s.ServiceTimeMinutes,
		&s.ParkingTimeMinutes,
		&s.NotificationsEnabled,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user settings: %w", err)
	}
	return &s, nil
}

// Get retrieves the settings row for a user.
func (r *Repository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	query := `
		SELECT ` + settingsColumns + `
		FROM user_settings
		WHERE user_id = $1`

	s, err := scanSettings(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetSettings: %w", err)
	}
	return s, nil
}

// Upsert writes the full settings row, creating it on first write.
func (r *Repository) Upsert(ctx context.Context, s models.UserSettings) (*models.UserSettings, error) {
	query := `
		INSERT INTO user_settings (user_id, call_advance_minutes, call_retry_interval_minutes, call_max_attempts, service_time_minutes, parking_time_minutes, notifications_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			call_advance_minutes = EXCLUDED.call_advance_minutes,
			call_retry_interval_minutes = EXCLUDED.call_retry_interval_minutes,
			call_max_attempts = EXCLUDED.call_max_attempts,
			service_time_minutes = EXCLUDED.service_time_minutes,
			parking_time_minutes = EXCLUDED.parking_time_minutes,
			notifications_enabled = EXCLUDED.notifications_enabled,
			updated_at = NOW()
		RETURNING ` + settingsColumns

	row := r.db.QueryRow(ctx, query,
		s.UserID,
		s.CallAdvanceMinutes,
		s.CallRetryIntervalMinutes,
		s.CallMaxAttempts,
		s.ServiceTimeMinutes,
		s.ParkingTimeMinutes,
		s.NotificationsEnabled,
	)
	saved, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("repository.UpsertSettings: %w", err)
	}
	return saved, nil
}
