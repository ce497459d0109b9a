package gorm

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure SettingsStore implements store.SettingsStore
var _ store.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements store.SettingsStore using GORM
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// ListSettings returns all settings ordered by name.
func (s *SettingsStore) ListSettings() ([]model.Setting, error) {
	var settings []model.Setting
	err := s.db.Order("name").Find(&settings).Error
	return settings, err
}

// GetSetting retrieves a setting by name.
func (s *SettingsStore) GetSetting(name string) (*model.Setting, error) {
	var setting model.Setting
	if err := s.db.First(&setting, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// PutSetting creates or updates a setting and returns the stored row.
func (s *SettingsStore) PutSetting(name, value string) (*model.Setting, error) {
	setting := model.Setting{Name: name, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}
