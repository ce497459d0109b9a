package store

import (
	"errors"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrDatabaseNotFound is returned when a managed database doesn't exist
var ErrDatabaseNotFound = errors.New("database not found")

// ErrDatabaseNameTaken is returned when a database name is already in use
var ErrDatabaseNameTaken = errors.New("database name already taken")

// DatabasesStore abstracts managed database storage operations
type DatabasesStore interface {
	// ListDatabases returns databases matching search (name, host or
	// engine), ordered by name.
	ListDatabases(search string, limit, offset int) ([]model.Database, error)

	// CountDatabases returns the count of databases matching search.
	CountDatabases(search string) (int64, error)

	// GetDatabase retrieves a database by id.
	// Returns ErrDatabaseNotFound if the database doesn't exist.
	GetDatabase(id uint) (*model.Database, error)

	// CreateDatabase creates a new database.
	// Returns ErrDatabaseNameTaken when the name is already in use.
	CreateDatabase(database *model.Database) error

	// UpdateDatabase persists changes to an existing database.
	UpdateDatabase(database *model.Database) error

	// DeleteDatabase removes a database by id.
	DeleteDatabase(id uint) error

	// SetDatabaseStatus updates reachability state, optionally recording
	// when the database was last seen.
	SetDatabaseStatus(id uint, status string, seenAt *time.Time) error

	// AllDatabases returns every database, for the reachability checker.
	AllDatabases() ([]model.Database, error)
}
