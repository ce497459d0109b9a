package gorm

import (
	"fmt"

	"gorm.io/gorm"
)

// HealthStore probes the panel database over the shared pool.
type HealthStore struct {
	db *gorm.DB
}

func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

// CheckConnectivity runs a trivial query. SELECT 1 exercises the full
// connection path without touching any table.
func (s *HealthStore) CheckConnectivity() error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
