package model

import "time"

// Application is a deployed service belonging to a business site, running
// on a managed server.
type Application struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	SiteID     *uint     `gorm:"column:site_id" json:"site_id,omitempty"`
	ServerID   *uint     `gorm:"column:server_id" json:"server_id,omitempty"`
	Kind       string    `gorm:"column:kind" json:"kind"`
	Version    string    `gorm:"column:version" json:"version"`
	Port       int       `gorm:"column:port" json:"port"`
	HealthPath string    `gorm:"column:health_path" json:"health_path"`
	Status     string    `gorm:"column:status" json:"status"`
	Notes      string    `gorm:"column:notes" json:"notes"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}
