package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure DevicesStore implements store.DevicesStore
var _ store.DevicesStore = (*DevicesStore)(nil)

// DevicesStore implements store.DevicesStore using GORM
type DevicesStore struct {
	db *gorm.DB
}

// NewDevicesStore creates a new DevicesStore
func NewDevicesStore(db *gorm.DB) *DevicesStore {
	return &DevicesStore{db: db}
}

func (s *DevicesStore) searchScope(search string) *gorm.DB {
	tx := s.db.Model(&model.NetworkDevice{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR address ILIKE ? OR vendor ILIKE ?", pattern, pattern, pattern)
	}
	return tx
}

// ListDevices returns devices matching search, ordered by name.
func (s *DevicesStore) ListDevices(search string, limit, offset int) ([]model.NetworkDevice, error) {
	var devices []model.NetworkDevice
	tx := s.searchScope(search).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&devices).Error
	return devices, err
}

// CountDevices returns the count of devices matching search.
func (s *DevicesStore) CountDevices(search string) (int64, error) {
	var count int64
	err := s.searchScope(search).Count(&count).Error
	return count, err
}

// GetDevice retrieves a device by id.
func (s *DevicesStore) GetDevice(id uint) (*model.NetworkDevice, error) {
	var device model.NetworkDevice
	if err := s.db.First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// CreateDevice creates a new device.
func (s *DevicesStore) CreateDevice(device *model.NetworkDevice) error {
	if err := s.db.Create(device).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrDeviceNameTaken
		}
		return err
	}
	return nil
}

// UpdateDevice persists changes to an existing device.
func (s *DevicesStore) UpdateDevice(device *model.NetworkDevice) error {
	tx := s.db.Save(device)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrDeviceNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDeviceNotFound
	}
	return nil
}

// DeleteDevice removes a device by id.
func (s *DevicesStore) DeleteDevice(id uint) error {
	tx := s.db.Delete(&model.NetworkDevice{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDeviceNotFound
	}
	return nil
}

// SetDeviceStatus updates reachability state.
func (s *DevicesStore) SetDeviceStatus(id uint, status string, seenAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if seenAt != nil {
		updates["last_seen_at"] = *seenAt
	}
	tx := s.db.Model(&model.NetworkDevice{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDeviceNotFound
	}
	return nil
}

// AllDevices returns every device, for the reachability checker.
func (s *DevicesStore) AllDevices() ([]model.NetworkDevice, error) {
	var devices []model.NetworkDevice
	err := s.db.Order("id").Find(&devices).Error
	return devices, err
}
