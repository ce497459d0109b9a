package model

import (
	"encoding/json"
	"time"
)

// Operation actions recorded in the trail.
const (
	ActionLogin        = "login"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionReveal       = "reveal"
	ActionTerminalOpen = "terminal_open"
	ActionTerminalEnd  = "terminal_end"
	ActionBackup       = "backup"
	ActionRestore      = "restore"
)

// OperationLog is one entry in the operation trail. Rows are written by the
// audit store; this model covers the read side.
type OperationLog struct {
	ID           uint            `gorm:"column:id;primaryKey" json:"id"`
	Time         time.Time       `gorm:"column:time" json:"time"`
	Username     string          `gorm:"column:username" json:"username"`
	ClientIP     string          `gorm:"column:client_ip" json:"client_ip"`
	Action       string          `gorm:"column:action" json:"action"`
	ResourceKind string          `gorm:"column:resource_kind" json:"resource_kind"`
	ResourceID   string          `gorm:"column:resource_id" json:"resource_id"`
	Success      bool            `gorm:"column:success" json:"success"`
	Message      string          `gorm:"column:message" json:"message"`
	Details      json.RawMessage `gorm:"column:details;type:jsonb" json:"details,omitempty"`
}

func (OperationLog) TableName() string {
	return "operation_logs"
}
