package gorm

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure ServersStore implements store.ServersStore
var _ store.ServersStore = (*ServersStore)(nil)

// ServersStore implements store.ServersStore using GORM
type ServersStore struct {
	db *gorm.DB
}

// NewServersStore creates a new ServersStore
func NewServersStore(db *gorm.DB) *ServersStore {
	return &ServersStore{db: db}
}

func (s *ServersStore) searchScope(search string) *gorm.DB {
	tx := s.db.Model(&model.Server{})
	if search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("name ILIKE ? OR host ILIKE ? OR tags ILIKE ?", pattern, pattern, pattern)
	}
	return tx
}

// ListServers returns servers matching search, ordered by name.
func (s *ServersStore) ListServers(search string, limit, offset int) ([]model.Server, error) {
	var servers []model.Server
	tx := s.searchScope(search).Order("name")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&servers).Error
	return servers, err
}

// CountServers returns the count of servers matching search.
func (s *ServersStore) CountServers(search string) (int64, error) {
	var count int64
	err := s.searchScope(search).Count(&count).Error
	return count, err
}

// GetServer retrieves a server by id.
func (s *ServersStore) GetServer(id uint) (*model.Server, error) {
	var server model.Server
	if err := s.db.First(&server, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrServerNotFound
		}
		return nil, err
	}
	return &server, nil
}

// GetServerByAgentKey retrieves a server by its agent key.
func (s *ServersStore) GetServerByAgentKey(key string) (*model.Server, error) {
	var server model.Server
	if err := s.db.Where("agent_key = ?", key).First(&server).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrServerNotFound
		}
		return nil, err
	}
	return &server, nil
}

// CreateServer creates a new server.
func (s *ServersStore) CreateServer(server *model.Server) error {
	if err := s.db.Create(server).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrServerNameTaken
		}
		return err
	}
	return nil
}

// UpdateServer persists changes to an existing server.
func (s *ServersStore) UpdateServer(server *model.Server) error {
	tx := s.db.Save(server)
	if tx.Error != nil {
		if isUniqueViolation(tx.Error) {
			return store.ErrServerNameTaken
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrServerNotFound
	}
	return nil
}

// DeleteServer removes a server by id. Servers jumping through it keep
// existing with the reference cleared by the schema.
func (s *ServersStore) DeleteServer(id uint) error {
	tx := s.db.Delete(&model.Server{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrServerNotFound
	}
	return nil
}

// SetServerStatus updates reachability state.
func (s *ServersStore) SetServerStatus(id uint, status string, seenAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if seenAt != nil {
		updates["last_seen_at"] = *seenAt
	}
	tx := s.db.Model(&model.Server{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrServerNotFound
	}
	return nil
}

// MarkServersOffline flips servers not seen since cutoff from online to
// offline and returns the affected rows.
func (s *ServersStore) MarkServersOffline(cutoff time.Time) ([]model.Server, error) {
	var stale []model.Server
	err := s.db.
		Where("status = ?", model.StatusOnline).
		Where("last_seen_at IS NULL OR last_seen_at < ?", cutoff).
		Find(&stale).Error
	if err != nil || len(stale) == 0 {
		return nil, err
	}

	ids := make([]uint, 0, len(stale))
	for _, server := range stale {
		ids = append(ids, server.ID)
	}

	err = s.db.Model(&model.Server{}).Where("id IN ?", ids).Update("status", model.StatusOffline).Error
	if err != nil {
		return nil, err
	}

	for i := range stale {
		stale[i].Status = model.StatusOffline
	}
	return stale, nil
}

// ResetAgentKey rotates the agent key and returns the new value.
func (s *ServersStore) ResetAgentKey(id uint) (string, error) {
	key := uuid.NewString()
	tx := s.db.Model(&model.Server{}).Where("id = ?", id).Update("agent_key", key)
	if tx.Error != nil {
		return "", tx.Error
	}
	if tx.RowsAffected == 0 {
		return "", store.ErrServerNotFound
	}
	return key, nil
}
