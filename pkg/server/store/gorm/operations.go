package gorm

import (
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure OperationsStore implements store.OperationsStore
var _ store.OperationsStore = (*OperationsStore)(nil)

// OperationsStore implements store.OperationsStore using GORM
type OperationsStore struct {
	db *gorm.DB
}

// NewOperationsStore creates a new OperationsStore
func NewOperationsStore(db *gorm.DB) *OperationsStore {
	return &OperationsStore{db: db}
}

func (s *OperationsStore) scope(q store.OperationsQuery) *gorm.DB {
	tx := s.db.Model(&model.OperationLog{})
	if q.Username != "" {
		tx = tx.Where("username = ?", q.Username)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.Kind != "" {
		tx = tx.Where("resource_kind = ?", q.Kind)
	}
	if q.From != nil {
		tx = tx.Where("time >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("time < ?", *q.To)
	}
	return tx
}

// ListOperations returns trail entries matching q, newest first.
func (s *OperationsStore) ListOperations(q store.OperationsQuery) ([]model.OperationLog, error) {
	var logs []model.OperationLog
	tx := s.scope(q).Order("time DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	err := tx.Find(&logs).Error
	return logs, err
}

// CountOperations returns the count of entries matching q.
func (s *OperationsStore) CountOperations(q store.OperationsQuery) (int64, error) {
	var count int64
	err := s.scope(q).Count(&count).Error
	return count, err
}
