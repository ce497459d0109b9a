package audit

import (
	"database/sql"
	"encoding/json"
	"os"
	"time"
)

// Store persists audit events as operation_logs rows
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store from DATABASE_URL
// Returns nil if DATABASE_URL is not set (trail persistence disabled)
func NewStore() (*Store, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store with an existing database connection
// Useful for sharing the server pool, and for testing with sqlmock
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists an audit event to the operation trail. The row columns are
// derived from the event's structured data: auth carries the acting user,
// client the ip, subject the resource, action the operation and result.
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	sd := event.StructuredData()

	sdataJSON, err := json.Marshal(sd)
	if err != nil {
		return err
	}

	success := sd[SDIDAction]["result"] == "success"

	_, err = s.db.Exec(`
		INSERT INTO operation_logs (time, username, client_ip, action, resource_kind, resource_id, success, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		time.Now().UTC(),
		sd[SDIDAuth]["user"],
		sd[SDIDClient]["ip"],
		event.MessageID(),
		sd[SDIDSubject]["kind"],
		sd[SDIDSubject]["id"],
		success,
		event.Message(),
		sdataJSON,
	)

	return err
}

// DB returns the underlying database connection (for testing)
func (s *Store) DB() *sql.DB {
	return s.db
}
