package store

import (
	"errors"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrSettingNotFound is returned when a setting doesn't exist
var ErrSettingNotFound = errors.New("setting not found")

// SettingsStore abstracts named panel settings
type SettingsStore interface {
	// ListSettings returns all settings ordered by name.
	ListSettings() ([]model.Setting, error)

	// GetSetting retrieves a setting by name.
	// Returns ErrSettingNotFound if the setting doesn't exist.
	GetSetting(name string) (*model.Setting, error)

	// PutSetting creates or updates a setting and returns the stored row.
	PutSetting(name, value string) (*model.Setting, error)
}
