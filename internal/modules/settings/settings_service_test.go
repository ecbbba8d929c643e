package settings

import (
	"context"
	"testing"

	"courier-assistant/internal/models"
)

type fakeSettingsRepo struct {
	rows map[string]models.UserSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: map[string]models.UserSettings{}}
}

func (r *fakeSettingsRepo) Get(_ context.Context, userID string) (*models.UserSettings, error) {
	s, ok := r.rows[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, s models.UserSettings) (*models.UserSettings, error) {
	r.rows[s.UserID] = s
	cp := s
	return &cp, nil
}

func TestGetSettingsCreatesDefaultsOnFirstRead(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewService(repo)

	got, err := svc.GetSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	want := models.DefaultSettings("user-1")
	if *got != want {
		t.Fatalf("GetSettings = %+v, want defaults %+v", *got, want)
	}
	if _, ok := repo.rows["user-1"]; !ok {
		t.Fatal("defaults not persisted on first read")
	}

	// A second read returns the stored row, not a fresh default.
	stored := repo.rows["user-1"]
	stored.CallAdvanceMinutes = 15
	repo.rows["user-1"] = stored
	got, err = svc.GetSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.CallAdvanceMinutes != 15 {
		t.Fatalf("CallAdvanceMinutes = %d, want the stored 15", got.CallAdvanceMinutes)
	}
}

func TestUpdateSettingsMergesPartialRequest(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewService(repo)

	advance := 20
	disabled := false
	got, err := svc.UpdateSettings(context.Background(), "user-1", models.UpdateSettingsRequest{
		CallAdvanceMinutes:   &advance,
		NotificationsEnabled: &disabled,
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got.CallAdvanceMinutes != 20 || got.NotificationsEnabled {
		t.Fatalf("got %+v", got)
	}
	// Untouched fields keep their defaults.
	if got.CallMaxAttempts != models.DefaultCallMaxAttempts || got.ServiceTimeMinutes != models.DefaultServiceTimeMinutes {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestResetSettingsRestoresDefaults(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewService(repo)

	advance := 90
	if _, err := svc.UpdateSettings(context.Background(), "user-1", models.UpdateSettingsRequest{CallAdvanceMinutes: &advance}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	got, err := svc.ResetSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	want := models.DefaultSettings("user-1")
	if *got != want {
		t.Fatalf("ResetSettings = %+v, want %+v", *got, want)
	}
	if repo.rows["user-1"] != want {
		t.Fatal("reset not persisted")
	}
}
