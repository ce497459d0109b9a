package store

import (
	"errors"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrBackupNotFound is returned when a backup doesn't exist
var ErrBackupNotFound = errors.New("backup not found")

// ErrRestoreNotFound is returned when a restore doesn't exist
var ErrRestoreNotFound = errors.New("restore not found")

// BackupsStore abstracts backup and restore job storage operations
type BackupsStore interface {
	// ListBackups returns backups, newest first, optionally scoped to one
	// database when databaseID is non-zero.
	ListBackups(databaseID uint, limit, offset int) ([]model.Backup, error)

	// CountBackups returns the count of backups matching the criteria.
	CountBackups(databaseID uint) (int64, error)

	// GetBackup retrieves a backup by id.
	// Returns ErrBackupNotFound if the backup doesn't exist.
	GetBackup(id uint) (*model.Backup, error)

	// CreateBackup records a new backup job.
	CreateBackup(b *model.Backup) error

	// UpdateBackup persists job state changes.
	UpdateBackup(b *model.Backup) error

	// DeleteBackup removes a backup record by id.
	DeleteBackup(id uint) error

	// CountRunningBackups returns how many backups are pending or running.
	CountRunningBackups() (int64, error)

	// FailInterrupted marks backup and restore jobs left pending or
	// running by a previous process as failed, returning how many rows
	// were flipped.
	FailInterrupted() (int64, error)

	// ListRestores returns restores, newest first, optionally scoped to
	// one backup when backupID is non-zero.
	ListRestores(backupID uint, limit, offset int) ([]model.Restore, error)

	// GetRestore retrieves a restore by id.
	// Returns ErrRestoreNotFound if the restore doesn't exist.
	GetRestore(id uint) (*model.Restore, error)

	// CreateRestore records a new restore job.
	CreateRestore(rst *model.Restore) error

	// UpdateRestore persists job state changes.
	UpdateRestore(rst *model.Restore) error
}
