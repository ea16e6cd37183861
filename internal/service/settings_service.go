package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
)

type settingsStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingsAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

const (
	settingRequestsEnabled = "outpass_requests_enabled"
	settingMaxDurationDays = "outpass_max_duration_days"
	settingSweepBatchLimit = "outpass_sweep_batch_limit"
)

type allowedSetting struct {
	Key         string
	Type        models.SettingType
	Default     string
	Description string
}

var allowedSettings = map[string]allowedSetting{
	settingRequestsEnabled: {
		Key:         settingRequestsEnabled,
		Type:        models.SettingTypeBoolean,
		Default:     "true",
		Description: "Master switch for accepting new outpass requests",
	},
	settingMaxDurationDays: {
		Key:         settingMaxDurationDays,
		Type:        models.SettingTypeInteger,
		Default:     "7",
		Description: "Longest interval, in days, a single outpass may span",
	},
	settingSweepBatchLimit: {
		Key:         settingSweepBatchLimit,
		Type:        models.SettingTypeInteger,
		Default:     "500",
		Description: "Maximum records processed per overdue sweep run",
	},
}

// SettingsService owns runtime-tunable policy. Values are cached in memory
// and refreshed only through Reload, so request handlers never read ambient
// global state.
type SettingsService struct {
	repo   settingsStore
	audit  settingsAuditLogger
	logger *zap.Logger

	mu     sync.RWMutex
	values map[string]string
}

// NewSettingsService constructs the service with defaults; call Reload to
// pick up persisted overrides.
func NewSettingsService(repo settingsStore, audit settingsAuditLogger, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	values := make(map[string]string, len(allowedSettings))
	for key, def := range allowedSettings {
		values[key] = def.Default
	}
	return &SettingsService{repo: repo, audit: audit, logger: logger, values: values}
}

// Reload replaces the cached values with the persisted ones. Unknown rows
// are ignored; missing rows keep their defaults.
func (s *SettingsService) Reload(ctx context.Context) error {
	keys := make([]string, 0, len(allowedSettings))
	for key := range allowedSettings {
		keys = append(keys, key)
	}
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, def := range allowedSettings {
		s.values[key] = def.Default
	}
	for _, row := range rows {
		if _, ok := allowedSettings[row.Key]; ok {
			s.values[row.Key] = row.Value
		}
	}
	return nil
}

// List returns every known setting with its effective value.
func (s *SettingsService) List(ctx context.Context) ([]models.Setting, error) {
	keys := make([]string, 0, len(allowedSettings))
	for key := range allowedSettings {
		keys = append(keys, key)
	}
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	persisted := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		persisted[row.Key] = row
	}
	result := make([]models.Setting, 0, len(allowedSettings))
	for key, def := range allowedSettings {
		if row, ok := persisted[key]; ok {
			result = append(result, row)
			continue
		}
		result = append(result, models.Setting{
			Key:         key,
			Value:       def.Default,
			Type:        def.Type,
			Description: def.Description,
		})
	}
	return result, nil
}

// Update persists a new value for an allowed key and refreshes the cache.
func (s *SettingsService) Update(ctx context.Context, key, value, actorID string) (*models.Setting, error) {
	def, ok := allowedSettings[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting key")
	}
	value = strings.TrimSpace(value)
	switch def.Type {
	case models.SettingTypeBoolean:
		if value != "true" && value != "false" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "value must be true or false")
		}
	case models.SettingTypeInteger:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "value must be a non-negative integer")
		}
	}

	var old string
	if existing, err := s.repo.Get(ctx, key); err == nil {
		old = existing.Value
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting")
	}

	setting := &models.Setting{
		Key:         key,
		Value:       value,
		Type:        def.Type,
		Description: def.Description,
		UpdatedBy:   &actorID,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionSettingsUpdate,
			Resource:   "settings",
			ResourceID: &setting.Key,
			OldValues:  []byte(strconv.Quote(old)),
			NewValues:  []byte(strconv.Quote(value)),
		}); err != nil {
			s.logger.Warn("failed to persist settings audit log", zap.Error(err))
		}
	}
	return setting, nil
}

// RequestsEnabled reports whether new outpass requests are accepted.
func (s *SettingsService) RequestsEnabled() bool {
	return s.value(settingRequestsEnabled) == "true"
}

// MaxDurationDays returns the longest interval an outpass may span.
func (s *SettingsService) MaxDurationDays() int {
	n, err := strconv.Atoi(s.value(settingMaxDurationDays))
	if err != nil || n <= 0 {
		return 7
	}
	return n
}

// SweepBatchLimit bounds how many records one sweep run processes.
func (s *SettingsService) SweepBatchLimit() int {
	n, err := strconv.Atoi(s.value(settingSweepBatchLimit))
	if err != nil || n <= 0 {
		return 500
	}
	return n
}

func (s *SettingsService) value(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}
