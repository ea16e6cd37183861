package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
)

type stubSettingsStore struct {
	rows map[string]models.Setting
}

func newStubSettingsStore() *stubSettingsStore {
	return &stubSettingsStore{rows: make(map[string]models.Setting)}
}

func (s *stubSettingsStore) ListByKeys(_ context.Context, keys []string) ([]models.Setting, error) {
	var result []models.Setting
	for _, key := range keys {
		if row, ok := s.rows[key]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

func (s *stubSettingsStore) Get(_ context.Context, key string) (*models.Setting, error) {
	row, ok := s.rows[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (s *stubSettingsStore) Upsert(_ context.Context, setting *models.Setting) error {
	s.rows[setting.Key] = *setting
	return nil
}

func TestSettingsDefaultsApply(t *testing.T) {
	svc := NewSettingsService(newStubSettingsStore(), nil, zap.NewNop())

	assert.True(t, svc.RequestsEnabled())
	assert.Equal(t, 7, svc.MaxDurationDays())
	assert.Equal(t, 500, svc.SweepBatchLimit())
}

func TestSettingsReloadPicksUpPersistedValues(t *testing.T) {
	store := newStubSettingsStore()
	store.rows["outpass_requests_enabled"] = models.Setting{
		Key: "outpass_requests_enabled", Value: "false", Type: models.SettingTypeBoolean,
	}
	store.rows["outpass_max_duration_days"] = models.Setting{
		Key: "outpass_max_duration_days", Value: "3", Type: models.SettingTypeInteger,
	}
	svc := NewSettingsService(store, nil, zap.NewNop())

	// Defaults until Reload is called.
	assert.True(t, svc.RequestsEnabled())

	require.NoError(t, svc.Reload(context.Background()))
	assert.False(t, svc.RequestsEnabled())
	assert.Equal(t, 3, svc.MaxDurationDays())
	assert.Equal(t, 500, svc.SweepBatchLimit())
}

func TestSettingsUpdateValidatesTypeAndKey(t *testing.T) {
	store := newStubSettingsStore()
	audit := &recordingAudit{}
	svc := NewSettingsService(store, audit, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Update(ctx, "unknown_key", "1", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(ctx, "outpass_requests_enabled", "maybe", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(ctx, "outpass_max_duration_days", "-2", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	updated, err := svc.Update(ctx, "outpass_max_duration_days", "14", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "14", updated.Value)

	// Cache refreshes without an explicit Reload.
	assert.Equal(t, 14, svc.MaxDurationDays())

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSettingsUpdate, audit.logs[0].Action)
}

func TestSettingsListMergesDefaults(t *testing.T) {
	store := newStubSettingsStore()
	store.rows["outpass_sweep_batch_limit"] = models.Setting{
		Key: "outpass_sweep_batch_limit", Value: "100", Type: models.SettingTypeInteger,
	}
	svc := NewSettingsService(store, nil, zap.NewNop())

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byKey := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	assert.Equal(t, "100", byKey["outpass_sweep_batch_limit"].Value)
	assert.Equal(t, "true", byKey["outpass_requests_enabled"].Value)
	assert.Equal(t, "7", byKey["outpass_max_duration_days"].Value)
}
