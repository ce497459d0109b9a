package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure DatabasesStore implements store.DatabasesStore
var _ store.DatabasesStore = (*DatabasesStore)(nil)

// DatabasesStore implements store.DatabasesStore using GORM
type DatabasesStore struct {
	db *gorm.DB
}

// NewDatabasesStore creates a new DatabasesStore
func NewDatabasesStore(db *gorm.DB) *DatabasesStore {
	return &DatabasesStore{db: db}
}

func (s *DatabasesStore) searchScope(search string) *gorm.DB {
	tx := s.db.Model(&model.Database{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR host ILIKE ? OR engine ILIKE ?", pattern, pattern, pattern)
	}
	return tx
}

// ListDatabases returns databases matching search, ordered by name.
func (s *DatabasesStore) ListDatabases(search string, limit, offset int) ([]model.Database, error) {
	var databases []model.Database
	tx := s.searchScope(search).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&databases).Error
	return databases, err
}

// CountDatabases returns the count of databases matching search.
func (s *DatabasesStore) CountDatabases(search string) (int64, error) {
	var count int64
	err := s.searchScope(search).Count(&count).Error
	return count, err
}

// GetDatabase retrieves a database by id.
func (s *DatabasesStore) GetDatabase(id uint) (*model.Database, error) {
	var database model.Database
	if err := s.db.First(&database, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrDatabaseNotFound
		}
		return nil, err
	}
	return &database, nil
}

// CreateDatabase creates a new database.
func (s *DatabasesStore) CreateDatabase(database *model.Database) error {
	if err := s.db.Create(database).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrDatabaseNameTaken
		}
		return err
	}
	return nil
}

// UpdateDatabase persists changes to an existing database.
func (s *DatabasesStore) UpdateDatabase(database *model.Database) error {
	tx := s.db.Save(database)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrDatabaseNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDatabaseNotFound
	}
	return nil
}

// DeleteDatabase removes a database by id along with its backup records.
func (s *DatabasesStore) DeleteDatabase(id uint) error {
	tx := s.db.Delete(&model.Database{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDatabaseNotFound
	}
	return nil
}

// SetDatabaseStatus updates reachability state.
func (s *DatabasesStore) SetDatabaseStatus(id uint, status string, seenAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if seenAt != nil {
		updates["last_seen_at"] = *seenAt
	}
	tx := s.db.Model(&model.Database{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrDatabaseNotFound
	}
	return nil
}

// AllDatabases returns every database, for the reachability checker.
func (s *DatabasesStore) AllDatabases() ([]model.Database, error) {
	var databases []model.Database
	err := s.db.Order("id").Find(&databases).Error
	return databases, err
}
