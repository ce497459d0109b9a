package store

import (
	"errors"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrDeviceNotFound is returned when a network device doesn't exist
var ErrDeviceNotFound = errors.New("network device not found")

// ErrDeviceNameTaken is returned when a device name is already in use
var ErrDeviceNameTaken = errors.New("device name already taken")

// DevicesStore abstracts network device storage operations
type DevicesStore interface {
	// ListDevices returns devices matching search (name, address or
	// vendor), ordered by name.
	ListDevices(search string, limit, offset int) ([]model.NetworkDevice, error)

	// CountDevices returns the count of devices matching search.
	CountDevices(search string) (int64, error)

	// GetDevice retrieves a device by id.
	// Returns ErrDeviceNotFound if the device doesn't exist.
	GetDevice(id uint) (*model.NetworkDevice, error)

	// CreateDevice creates a new device.
	// Returns ErrDeviceNameTaken when the name is already in use.
	CreateDevice(device *model.NetworkDevice) error

	// UpdateDevice persists changes to an existing device.
	UpdateDevice(device *model.NetworkDevice) error

	// DeleteDevice removes a device by id.
	DeleteDevice(id uint) error

	// SetDeviceStatus updates reachability state, optionally recording
	// when the device was last seen.
	SetDeviceStatus(id uint, status string, seenAt *time.Time) error

	// AllDevices returns every device, for the reachability checker.
	AllDevices() ([]model.NetworkDevice, error)
}
