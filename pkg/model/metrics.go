package model

import "time"

// Metric samples live in TimescaleDB hypertables keyed by (time, owner id).
// They carry no surrogate primary key; rows are append-only.

// ServerMetric is one agent heartbeat sample for a server.
type ServerMetric struct {
	ServerID      uint      `gorm:"column:server_id;not null" json:"server_id"`
	Time          time.Time `gorm:"column:time;not null" json:"time"`
	CPUUsage      float64   `gorm:"column:cpu_usage" json:"cpu_usage"`
	MemoryUsage   float64   `gorm:"column:memory_usage" json:"memory_usage"`
	MemoryTotal   uint64    `gorm:"column:memory_total" json:"memory_total"`
	DiskUsage     float64   `gorm:"column:disk_usage" json:"disk_usage"`
	DiskTotal     uint64    `gorm:"column:disk_total" json:"disk_total"`
	NetInBytes    uint64    `gorm:"column:net_in_bytes" json:"net_in_bytes"`
	NetOutBytes   uint64    `gorm:"column:net_out_bytes" json:"net_out_bytes"`
	Load1         float64   `gorm:"column:load1" json:"load1"`
	UptimeSeconds uint64    `gorm:"column:uptime_seconds" json:"uptime_seconds"`
}

func (ServerMetric) TableName() string {
	return "server_metrics"
}

// DeviceMetric is one reachability probe result for a network device.
type DeviceMetric struct {
	DeviceID  uint      `gorm:"column:device_id;not null" json:"device_id"`
	Time      time.Time `gorm:"column:time;not null" json:"time"`
	Reachable bool      `gorm:"column:reachable" json:"reachable"`
	LatencyMs float64   `gorm:"column:latency_ms" json:"latency_ms"`
}

func (DeviceMetric) TableName() string {
	return "device_metrics"
}

// SiteAvailability is one HTTP health check result for a business site.
type SiteAvailability struct {
	SiteID         uint      `gorm:"column:site_id;not null" json:"site_id"`
	Time           time.Time `gorm:"column:time;not null" json:"time"`
	Up             bool      `gorm:"column:up" json:"up"`
	StatusCode     int       `gorm:"column:status_code" json:"status_code"`
	ResponseTimeMs float64   `gorm:"column:response_time_ms" json:"response_time_ms"`
	CheckError     string    `gorm:"column:check_error" json:"check_error,omitempty"`
}

func (SiteAvailability) TableName() string {
	return "site_availability"
}

// DatabaseMetric is one reachability probe result for a managed database.
type DatabaseMetric struct {
	DatabaseID  uint      `gorm:"column:database_id;not null" json:"database_id"`
	Time        time.Time `gorm:"column:time;not null" json:"time"`
	Reachable   bool      `gorm:"column:reachable" json:"reachable"`
	LatencyMs   float64   `gorm:"column:latency_ms" json:"latency_ms"`
	Connections int       `gorm:"column:connections" json:"connections"`
	SizeBytes   int64     `gorm:"column:size_bytes" json:"size_bytes"`
}

func (DatabaseMetric) TableName() string {
	return "database_metrics"
}
