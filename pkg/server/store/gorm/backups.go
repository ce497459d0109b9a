package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure BackupsStore implements store.BackupsStore
var _ store.BackupsStore = (*BackupsStore)(nil)

// BackupsStore implements store.BackupsStore using GORM
type BackupsStore struct {
	db *gorm.DB
}

// NewBackupsStore creates a new BackupsStore
func NewBackupsStore(db *gorm.DB) *BackupsStore {
	return &BackupsStore{db: db}
}

func (s *BackupsStore) backupScope(databaseID uint) *gorm.DB {
	tx := s.db.Model(&model.Backup{})
	if databaseID != 0 {
		tx = tx.Where("database_id = ?", databaseID)
	}
	return tx
}

// ListBackups returns backups, newest first.
func (s *BackupsStore) ListBackups(databaseID uint, limit, offset int) ([]model.Backup, error) {
	var backups []model.Backup
	tx := s.backupScope(databaseID).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&backups).Error
	return backups, err
}

// CountBackups returns the count of backups matching the criteria.
func (s *BackupsStore) CountBackups(databaseID uint) (int64, error) {
	var count int64
	err := s.backupScope(databaseID).Count(&count).Error
	return count, err
}

// GetBackup retrieves a backup by id.
func (s *BackupsStore) GetBackup(id uint) (*model.Backup, error) {
	var b model.Backup
	if err := s.db.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrBackupNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreateBackup records a new backup job.
func (s *BackupsStore) CreateBackup(b *model.Backup) error {
	return s.db.Create(b).Error
}

// UpdateBackup persists job state changes.
func (s *BackupsStore) UpdateBackup(b *model.Backup) error {
	tx := s.db.Save(b)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrBackupNotFound
	}
	return nil
}

// DeleteBackup removes a backup record by id.
func (s *BackupsStore) DeleteBackup(id uint) error {
	tx := s.db.Delete(&model.Backup{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrBackupNotFound
	}
	return nil
}

// CountRunningBackups returns how many backups are pending or running.
func (s *BackupsStore) CountRunningBackups() (int64, error) {
	var count int64
	err := s.db.Model(&model.Backup{}).
		Where("state IN ?", []model.BackupState{model.BackupStatePending, model.BackupStateRunning}).
		Count(&count).Error
	return count, err
}

// FailInterrupted flips jobs left pending or running by a previous
// process to failed. The queue lives in memory, so no worker will ever
// pick them up again, and stuck rows would count against the admission
// cap forever.
func (s *BackupsStore) FailInterrupted() (int64, error) {
	inFlight := []model.BackupState{model.BackupStatePending, model.BackupStateRunning}
	now := time.Now().UTC()
	update := map[string]interface{}{
		"state":       model.BackupStateFailed,
		"error":       "interrupted by server restart",
		"finished_at": now,
	}

	tx := s.db.Model(&model.Backup{}).Where("state IN ?", inFlight).Updates(update)
	if tx.Error != nil {
		return 0, tx.Error
	}
	flipped := tx.RowsAffected

	tx = s.db.Model(&model.Restore{}).Where("state IN ?", inFlight).Updates(update)
	if tx.Error != nil {
		return flipped, tx.Error
	}
	return flipped + tx.RowsAffected, nil
}

// ListRestores returns restores, newest first.
func (s *BackupsStore) ListRestores(backupID uint, limit, offset int) ([]model.Restore, error) {
	var restores []model.Restore
	tx := s.db.Model(&model.Restore{}).Order("created_at DESC")
	if backupID != 0 {
		tx = tx.Where("backup_id = ?", backupID)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	err := tx.Find(&restores).Error
	return restores, err
}

// GetRestore retrieves a restore by id.
func (s *BackupsStore) GetRestore(id uint) (*model.Restore, error) {
	var rst model.Restore
	if err := s.db.First(&rst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrRestoreNotFound
		}
		return nil, err
	}
	return &rst, nil
}

// CreateRestore records a new restore job.
func (s *BackupsStore) CreateRestore(rst *model.Restore) error {
	return s.db.Create(rst).Error
}

// UpdateRestore persists job state changes.
func (s *BackupsStore) UpdateRestore(rst *model.Restore) error {
	tx := s.db.Save(rst)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrRestoreNotFound
	}
	return nil
}
