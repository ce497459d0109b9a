package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure SitesStore implements store.SitesStore
var _ store.SitesStore = (*SitesStore)(nil)

// SitesStore implements store.SitesStore using GORM
type SitesStore struct {
	db *gorm.DB
}

// NewSitesStore creates a new SitesStore
func NewSitesStore(db *gorm.DB) *SitesStore {
	return &SitesStore{db: db}
}

// ListGroups returns all site groups ordered by name.
func (s *SitesStore) ListGroups() ([]model.SiteGroup, error) {
	var groups []model.SiteGroup
	err := s.db.Order("name").Find(&groups).Error
	return groups, err
}

// GetGroup retrieves a group by id.
func (s *SitesStore) GetGroup(id uint) (*model.SiteGroup, error) {
	var group model.SiteGroup
	if err := s.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrSiteGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

// CreateGroup creates a new group.
func (s *SitesStore) CreateGroup(group *model.SiteGroup) error {
	if err := s.db.Create(group).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrSiteGroupNameTaken
		}
		return err
	}
	return nil
}

// UpdateGroup persists changes to an existing group.
func (s *SitesStore) UpdateGroup(group *model.SiteGroup) error {
	tx := s.db.Save(group)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrSiteGroupNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrSiteGroupNotFound
	}
	return nil
}

// DeleteGroup removes a group by id.
func (s *SitesStore) DeleteGroup(id uint) error {
	tx := s.db.Delete(&model.SiteGroup{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrSiteGroupNotFound
	}
	return nil
}

func (s *SitesStore) siteScope(search string, groupID uint) *gorm.DB {
	tx := s.db.Model(&model.BusinessSite{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR url ILIKE ?", pattern, pattern)
	}
	if groupID != 0 {
		tx = tx.Where("group_id = ?", groupID)
	}
	return tx
}

// ListSites returns sites matching the criteria, ordered by name.
func (s *SitesStore) ListSites(search string, groupID uint, limit, offset int) ([]model.BusinessSite, error) {
	var sites []model.BusinessSite
	tx := s.siteScope(search, groupID).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&sites).Error
	return sites, err
}

// CountSites returns the count of sites matching the criteria.
func (s *SitesStore) CountSites(search string, groupID uint) (int64, error) {
	var count int64
	err := s.siteScope(search, groupID).Count(&count).Error
	return count, err
}

// GetSite retrieves a site by id.
func (s *SitesStore) GetSite(id uint) (*model.BusinessSite, error) {
	var site model.BusinessSite
	if err := s.db.First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrSiteNotFound
		}
		return nil, err
	}
	return &site, nil
}

// CreateSite creates a new site.
func (s *SitesStore) CreateSite(site *model.BusinessSite) error {
	if err := s.db.Create(site).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrSiteNameTaken
		}
		return err
	}
	return nil
}

// UpdateSite persists changes to an existing site.
func (s *SitesStore) UpdateSite(site *model.BusinessSite) error {
	tx := s.db.Save(site)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrSiteNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrSiteNotFound
	}
	return nil
}

// DeleteSite removes a site by id.
func (s *SitesStore) DeleteSite(id uint) error {
	tx := s.db.Delete(&model.BusinessSite{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrSiteNotFound
	}
	return nil
}

// EnabledSites returns sites with checking enabled, for the checker.
func (s *SitesStore) EnabledSites() ([]model.BusinessSite, error) {
	var sites []model.BusinessSite
	err := s.db.Where("enabled = ?", true).Order("id").Find(&sites).Error
	return sites, err
}

// SetSiteCheckState records the outcome of an availability evaluation.
func (s *SitesStore) SetSiteCheckState(id uint, status string, score float64, checkedAt time.Time) error {
	tx := s.db.Model(&model.BusinessSite{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":             status,
		"availability_score": score,
		"last_checked_at":    checkedAt,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrSiteNotFound
	}
	return nil
}
