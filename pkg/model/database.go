package model

import (
	"time"

	"gorm.io/gorm"
)

// Managed database engines.
const (
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
	EngineRedis    = "redis"
)

// Database is a managed database instance. ServerID links it to the host
// it runs on so backup jobs can dump over SSH; CredentialID supplies the
// database password.
type Database struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	Engine       string     `gorm:"column:engine;not null" json:"engine"`
	Host         string     `gorm:"column:host;not null" json:"host"`
	Port         int        `gorm:"column:port;not null" json:"port"`
	DBName       string     `gorm:"column:db_name" json:"db_name"`
	Username     string     `gorm:"column:username" json:"username"`
	CredentialID *uint      `gorm:"column:credential_id" json:"credential_id,omitempty"`
	ServerID     *uint      `gorm:"column:server_id" json:"server_id,omitempty"`
	Status       string     `gorm:"column:status;not null" json:"status"`
	LastSeenAt   *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	Notes        string     `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Database) TableName() string {
	return "databases"
}

func (d *Database) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	if d.Port == 0 {
		switch d.Engine {
		case EngineMySQL:
			d.Port = 3306
		case EngineRedis:
			d.Port = 6379
		default:
			d.Port = 5432
		}
	}
	return nil
}

// ValidEngine reports whether engine is a supported database engine.
func ValidEngine(engine string) bool {
	switch engine {
	case EnginePostgres, EngineMySQL, EngineRedis:
		return true
	}
	return false
}
