package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

func (s *UsersStore) searchScope(search string) *gorm.DB {
	tx := s.db.Model(&model.User{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("username ILIKE ? OR display_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern)
	}
	return tx
}

// ListUsers returns users matching search, ordered by username.
func (s *UsersStore) ListUsers(search string, limit, offset int) ([]model.User, error) {
	var users []model.User
	tx := s.searchScope(search).Order("username")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&users).Error
	return users, err
}

// CountUsers returns the count of users matching search.
func (s *UsersStore) CountUsers(search string) (int64, error) {
	var count int64
	err := s.searchScope(search).Count(&count).Error
	return count, err
}

// GetUser retrieves a user by id.
func (s *UsersStore) GetUser(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *UsersStore) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user.
func (s *UsersStore) CreateUser(user *model.User) error {
	if err := s.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrUsernameTaken
		}
		return err
	}
	return nil
}

// UpdateUser persists changes to an existing user.
func (s *UsersStore) UpdateUser(user *model.User) error {
	tx := s.db.Save(user)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrUsernameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user by id.
func (s *UsersStore) DeleteUser(id uint) error {
	tx := s.db.Delete(&model.User{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (s *UsersStore) TouchLastLogin(id uint, at time.Time) error {
	return s.db.Model(&model.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}
