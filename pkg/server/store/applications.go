package store

import (
	"errors"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrApplicationNotFound is returned when an application doesn't exist
var ErrApplicationNotFound = errors.New("application not found")

// ApplicationsStore abstracts application storage operations
type ApplicationsStore interface {
	// ListApplications returns applications matching search and, when
	// non-zero, the given site and server filters. Ordered by name.
	ListApplications(search string, siteID, serverID uint, limit, offset int) ([]model.Application, error)

	// CountApplications returns the count of applications matching the
	// criteria.
	CountApplications(search string, siteID, serverID uint) (int64, error)

	// GetApplication retrieves an application by id.
	// Returns ErrApplicationNotFound if the application doesn't exist.
	GetApplication(id uint) (*model.Application, error)

	// CreateApplication creates a new application.
	CreateApplication(app *model.Application) error

	// UpdateApplication persists changes to an existing application.
	UpdateApplication(app *model.Application) error

	// DeleteApplication removes an application by id.
	DeleteApplication(id uint) error
}
