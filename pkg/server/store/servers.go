package store

import (
	"errors"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrServerNotFound is returned when a server doesn't exist
var ErrServerNotFound = errors.New("server not found")

// ErrServerNameTaken is returned when a server name is already in use
var ErrServerNameTaken = errors.New("server name already taken")

// ServersStore abstracts managed server storage operations
type ServersStore interface {
	// ListServers returns servers matching search (name, host or tags),
	// ordered by name.
	ListServers(search string, limit, offset int) ([]model.Server, error)

	// CountServers returns the count of servers matching search.
	CountServers(search string) (int64, error)

	// GetServer retrieves a server by id.
	// Returns ErrServerNotFound if the server doesn't exist.
	GetServer(id uint) (*model.Server, error)

	// GetServerByAgentKey retrieves a server by its agent key.
	GetServerByAgentKey(key string) (*model.Server, error)

	// CreateServer creates a new server.
	// Returns ErrServerNameTaken when the name is already in use.
	CreateServer(server *model.Server) error

	// UpdateServer persists changes to an existing server.
	UpdateServer(server *model.Server) error

	// DeleteServer removes a server by id.
	DeleteServer(id uint) error

	// SetServerStatus updates reachability state, optionally recording
	// when the server was last seen.
	SetServerStatus(id uint, status string, seenAt *time.Time) error

	// MarkServersOffline flips servers not seen since cutoff from online
	// to offline and returns the affected rows.
	MarkServersOffline(cutoff time.Time) ([]model.Server, error)

	// ResetAgentKey rotates the agent key and returns the new value.
	ResetAgentKey(id uint) (string, error)
}
