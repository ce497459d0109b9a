package model

import (
	"time"

	"gorm.io/gorm"
)

// Network device types.
const (
	DeviceSwitch      = "switch"
	DeviceRouter      = "router"
	DeviceFirewall    = "firewall"
	DeviceAccessPoint = "ap"
	DeviceOther       = "other"
)

// NetworkDevice is a switch, router, firewall or access point tracked by
// the panel. Reachability is probed over TCP against Address:ProbePort.
type NetworkDevice struct {
	ID            uint       `gorm:"column:id;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;not null" json:"name"`
	Address       string     `gorm:"column:address;not null" json:"address"`
	Vendor        string     `gorm:"column:vendor" json:"vendor"`
	Model         string     `gorm:"column:model" json:"model"`
	DeviceType    string     `gorm:"column:device_type;not null" json:"device_type"`
	ProbePort     int        `gorm:"column:probe_port;not null" json:"probe_port"`
	SNMPCommunity string     `gorm:"column:snmp_community" json:"snmp_community"`
	CredentialID  *uint      `gorm:"column:credential_id" json:"credential_id,omitempty"`
	Status        string     `gorm:"column:status;not null" json:"status"`
	LastSeenAt    *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	Notes         string     `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (NetworkDevice) TableName() string {
	return "network_devices"
}

func (d *NetworkDevice) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	if d.ProbePort == 0 {
		d.ProbePort = 22
	}
	if d.DeviceType == "" {
		d.DeviceType = DeviceOther
	}
	return nil
}
