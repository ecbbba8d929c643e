package settings

import (
	"context"
	"errors"
	"fmt"

	"courier-assistant/internal/models"
)

// ServiceInterface defines the contract for the settings service.
type ServiceInterface interface {
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, userID string, req models.UpdateSettingsRequest) (*models.UserSettings, error)
	ResetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// Service implements the settings service logic.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new settings service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// GetSettings returns the user's settings, creating the row with defaults
// on first read so later partial updates always have a base to merge into.
func (s *Service) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			created, err := s.repo.Upsert(ctx, models.DefaultSettings(userID))
			if err != nil {
				return nil, fmt.Errorf("service.GetSettings: create defaults: %w", err)
			}
			return created, nil
		}
		return nil, fmt.Errorf("service.GetSettings: %w", err)
	}
	return stored, nil
}

// ResetSettings discards the user's tunables and restores the defaults.
func (s *Service) ResetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	saved, err := s.repo.Upsert(ctx, models.DefaultSettings(userID))
	if err != nil {
		return nil, fmt.Errorf("service.ResetSettings: %w", err)
	}
	return saved, nil
}

// UpdateSettings applies a partial update on top of the current (or
// default) settings and persists the merged row.
func (s *Service) UpdateSettings(ctx context.Context, userID string, req models.UpdateSettingsRequest) (*models.UserSettings, error) {
	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.CallAdvanceMinutes != nil {
		current.CallAdvanceMinutes = *req.CallAdvanceMinutes
	}
	if req.CallRetryIntervalMinutes != nil {
		current.CallRetryIntervalMinutes = *req.CallRetryIntervalMinutes
	}
	if req.CallMaxAttempts != nil {
		current.CallMaxAttempts = *req.CallMaxAttempts
	}
	if req.ServiceTimeMinutes != nil {
		current.ServiceTimeMinutes = *req.ServiceTimeMinutes
	}
	if req.ParkingTimeMinutes != nil {
		current.ParkingTimeMinutes = *req.ParkingTimeMinutes
	}
	if req.NotificationsEnabled != nil {
		current.NotificationsEnabled = *req.NotificationsEnabled
	}

	saved, err := s.repo.Upsert(ctx, *current)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateSettings: %w", err)
	}
	return saved, nil
}
