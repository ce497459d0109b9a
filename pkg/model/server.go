package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Server is a managed host reachable over SSH.
//
// JumpHostID points at another Server used as a bastion; terminal sessions
// and backup jobs dial through it. AgentKey authenticates heartbeat pushes
// from the host agent and never appears in regular API responses.
type Server struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	Host         string     `gorm:"column:host;not null" json:"host"`
	Port         int        `gorm:"column:port;not null" json:"port"`
	SSHUser      string     `gorm:"column:ssh_user" json:"ssh_user"`
	CredentialID *uint      `gorm:"column:credential_id" json:"credential_id,omitempty"`
	JumpHostID   *uint      `gorm:"column:jump_host_id" json:"jump_host_id,omitempty"`
	AgentKey     string     `gorm:"column:agent_key;not null" json:"-"`
	OS           string     `gorm:"column:os" json:"os"`
	Arch         string     `gorm:"column:arch" json:"arch"`
	Tags         string     `gorm:"column:tags" json:"tags"`
	Status       string     `gorm:"column:status;not null" json:"status"`
	LastSeenAt   *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	Notes        string     `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Server) TableName() string {
	return "servers"
}

func (s *Server) BeforeCreate(tx *gorm.DB) error {
	if s.AgentKey == "" {
		s.AgentKey = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = StatusUnknown
	}
	if s.Port == 0 {
		s.Port = 22
	}
	return nil
}
