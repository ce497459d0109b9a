package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure ApplicationsStore implements store.ApplicationsStore
var _ store.ApplicationsStore = (*ApplicationsStore)(nil)

// ApplicationsStore implements store.ApplicationsStore using GORM
type ApplicationsStore struct {
	db *gorm.DB
}

// NewApplicationsStore creates a new ApplicationsStore
func NewApplicationsStore(db *gorm.DB) *ApplicationsStore {
	return &ApplicationsStore{db: db}
}

func (s *ApplicationsStore) scope(search string, siteID, serverID uint) *gorm.DB {
	tx := s.db.Model(&model.Application{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR kind ILIKE ?", pattern, pattern)
	}
	if siteID != 0 {
		tx = tx.Where("site_id = ?", siteID)
	}
	if serverID != 0 {
		tx = tx.Where("server_id = ?", serverID)
	}
	return tx
}

// ListApplications returns applications matching the criteria, ordered by name.
func (s *ApplicationsStore) ListApplications(search string, siteID, serverID uint, limit, offset int) ([]model.Application, error) {
	var apps []model.Application
	tx := s.scope(search, siteID, serverID).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&apps).Error
	return apps, err
}

// CountApplications returns the count of applications matching the criteria.
func (s *ApplicationsStore) CountApplications(search string, siteID, serverID uint) (int64, error) {
	var count int64
	err := s.scope(search, siteID, serverID).Count(&count).Error
	return count, err
}

// GetApplication retrieves an application by id.
func (s *ApplicationsStore) GetApplication(id uint) (*model.Application, error) {
	var app model.Application
	if err := s.db.First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// CreateApplication creates a new application.
func (s *ApplicationsStore) CreateApplication(app *model.Application) error {
	return s.db.Create(app).Error
}

// UpdateApplication persists changes to an existing application.
func (s *ApplicationsStore) UpdateApplication(app *model.Application) error {
	tx := s.db.Save(app)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrApplicationNotFound
	}
	return nil
}

// DeleteApplication removes an application by id.
func (s *ApplicationsStore) DeleteApplication(id uint) error {
	tx := s.db.Delete(&model.Application{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrApplicationNotFound
	}
	return nil
}
