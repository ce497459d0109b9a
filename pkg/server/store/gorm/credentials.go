package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure CredentialsStore implements store.CredentialsStore
var _ store.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore implements store.CredentialsStore using GORM
type CredentialsStore struct {
	db *gorm.DB
}

// NewCredentialsStore creates a new CredentialsStore
func NewCredentialsStore(db *gorm.DB) *CredentialsStore {
	return &CredentialsStore{db: db}
}

func (s *CredentialsStore) searchScope(search string) *gorm.DB {
	tx := s.db.Model(&model.Credential{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR username ILIKE ?", pattern, pattern)
	}
	return tx
}

// ListCredentials returns credentials matching search, ordered by name.
func (s *CredentialsStore) ListCredentials(search string, limit, offset int) ([]model.Credential, error) {
	var creds []model.Credential
	tx := s.searchScope(search).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&creds).Error
	return creds, err
}

// CountCredentials returns the count of credentials matching search.
func (s *CredentialsStore) CountCredentials(search string) (int64, error) {
	var count int64
	err := s.searchScope(search).Count(&count).Error
	return count, err
}

// GetCredential retrieves a credential by id.
func (s *CredentialsStore) GetCredential(id uint) (*model.Credential, error) {
	var cred model.Credential
	if err := s.db.First(&cred, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrCredentialNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// CreateCredential creates a new credential.
func (s *CredentialsStore) CreateCredential(cred *model.Credential) error {
	err := s.db.Create(cred).Error
	if isUniqueViolation(err) {
		return store.ErrCredentialNameTaken
	}
	return err
}

// UpdateCredential persists changes to an existing credential. An empty
// Secret keeps the stored ciphertext untouched.
func (s *CredentialsStore) UpdateCredential(cred *model.Credential) error {
	columns := []string{"name", "kind", "username", "description", "updated_at"}
	if len(cred.Secret) > 0 {
		columns = append(columns, "secret")
	}

	tx := s.db.Model(cred).Select(columns).Updates(cred)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrCredentialNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrCredentialNotFound
	}
	return nil
}

// DeleteCredential removes a credential by id. Deletion is refused while
// servers, devices or databases still reference the credential.
func (s *CredentialsStore) DeleteCredential(id uint) error {
	var refs int64
	for _, m := range []interface{}{&model.Server{}, &model.NetworkDevice{}, &model.Database{}} {
		var count int64
		if err := s.db.Model(m).Where("credential_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		refs += count
	}
	if refs > 0 {
		return store.ErrCredentialInUse
	}

	tx := s.db.Delete(&model.Credential{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrCredentialNotFound
	}
	return nil
}
