package inventory

import (
	"errors"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// Ensure GormStore implements Store
var _ Store = (*GormStore)(nil)

// GormStore implements Store using GORM for database operations.
//
// The *gorm.DB must come from db.Connect so its context carries the vault
// cipher; credential secrets are encrypted and decrypted by model hooks.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction wraps operations in a database transaction.
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func byName[T any](db *gorm.DB, name string) (*T, error) {
	var rec T
	err := db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) CredentialByName(name string) (*model.Credential, error) {
	return byName[model.Credential](s.db, name)
}

func (s *GormStore) SaveCredential(c *model.Credential) error {
	return s.db.Save(c).Error
}

func (s *GormStore) ServerByName(name string) (*model.Server, error) {
	return byName[model.Server](s.db, name)
}

func (s *GormStore) SaveServer(srv *model.Server) error {
	return s.db.Save(srv).Error
}

func (s *GormStore) DeviceByName(name string) (*model.NetworkDevice, error) {
	return byName[model.NetworkDevice](s.db, name)
}

func (s *GormStore) SaveDevice(d *model.NetworkDevice) error {
	return s.db.Save(d).Error
}

func (s *GormStore) DatabaseByName(name string) (*model.Database, error) {
	return byName[model.Database](s.db, name)
}

func (s *GormStore) SaveDatabase(d *model.Database) error {
	return s.db.Save(d).Error
}

func (s *GormStore) SiteGroupByName(name string) (*model.SiteGroup, error) {
	return byName[model.SiteGroup](s.db, name)
}

func (s *GormStore) SaveSiteGroup(g *model.SiteGroup) error {
	return s.db.Save(g).Error
}

func (s *GormStore) SiteByName(name string) (*model.BusinessSite, error) {
	return byName[model.BusinessSite](s.db, name)
}

func (s *GormStore) SaveSite(site *model.BusinessSite) error {
	return s.db.Save(site).Error
}

func (s *GormStore) ApplicationByName(name string) (*model.Application, error) {
	return byName[model.Application](s.db, name)
}

func (s *GormStore) SaveApplication(a *model.Application) error {
	return s.db.Save(a).Error
}
