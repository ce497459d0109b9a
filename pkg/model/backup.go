package model

import (
	"time"
)

//go:generate go run github.com/dmarkham/enumer -type BackupState -trimprefix BackupState -transform lower -json -sql -output backupstate.gen.go

// BackupState is the lifecycle state of a backup or restore job.
type BackupState int

const (
	BackupStatePending BackupState = iota
	BackupStateRunning
	BackupStateCompleted
	BackupStateFailed
)

// Backup kinds.
const (
	BackupManual    = "manual"
	BackupScheduled = "scheduled"
)

// Backup is one database dump job and its artifact.
type Backup struct {
	ID         uint        `gorm:"column:id;primaryKey" json:"id"`
	UID        string      `gorm:"column:uid;not null" json:"uid"`
	DatabaseID uint        `gorm:"column:database_id;not null" json:"database_id"`
	Kind       string      `gorm:"column:kind;not null" json:"kind"`
	State      BackupState `gorm:"column:state;type:text;not null" json:"state"`
	FilePath   string      `gorm:"column:file_path" json:"file_path"`
	SizeBytes  int64       `gorm:"column:size_bytes" json:"size_bytes"`
	StartedAt  *time.Time  `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time  `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Error      string      `gorm:"column:error" json:"error,omitempty"`
	CreatedBy  string      `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Backup) TableName() string {
	return "backups"
}

// Restore is one restore job replaying a backup artifact into its database.
type Restore struct {
	ID         uint        `gorm:"column:id;primaryKey" json:"id"`
	BackupID   uint        `gorm:"column:backup_id;not null" json:"backup_id"`
	State      BackupState `gorm:"column:state;type:text;not null" json:"state"`
	StartedAt  *time.Time  `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time  `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Error      string      `gorm:"column:error" json:"error,omitempty"`
	CreatedBy  string      `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Restore) TableName() string {
	return "restores"
}
