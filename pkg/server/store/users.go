package store

import (
	"errors"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrUserNotFound is returned when a user doesn't exist
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameTaken is returned when a username is already in use
var ErrUsernameTaken = errors.New("username already taken")

// UsersStore abstracts panel account storage operations
type UsersStore interface {
	// ListUsers returns users matching search, ordered by username.
	ListUsers(search string, limit, offset int) ([]model.User, error)

	// CountUsers returns the count of users matching search.
	CountUsers(search string) (int64, error)

	// GetUser retrieves a user by id.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(id uint) (*model.User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(username string) (*model.User, error)

	// CreateUser creates a new user.
	// Returns ErrUsernameTaken when the username is already in use.
	CreateUser(user *model.User) error

	// UpdateUser persists changes to an existing user.
	UpdateUser(user *model.User) error

	// DeleteUser removes a user by id.
	DeleteUser(id uint) error

	// TouchLastLogin records a successful login time.
	TouchLastLogin(id uint, at time.Time) error
}
