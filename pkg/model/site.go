package model

import (
	"time"

	"gorm.io/gorm"
)

// SiteGroup groups business sites for the dashboard.
type SiteGroup struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SiteGroup) TableName() string {
	return "site_groups"
}

// BusinessSite is an HTTP endpoint probed by the availability checker.
//
// CheckIntervalSeconds and TimeoutSeconds of zero fall back to the global
// configuration. A check passes when the response status equals
// ExpectedStatus and, if Keyword is set, the body contains it.
// AvailabilityScore is the success percentage over the recent check window.
type BusinessSite struct {
	ID                   uint       `gorm:"column:id;primaryKey" json:"id"`
	Name                 string     `gorm:"column:name;not null" json:"name"`
	URL                  string     `gorm:"column:url;not null" json:"url"`
	GroupID              *uint      `gorm:"column:group_id" json:"group_id,omitempty"`
	CheckIntervalSeconds int        `gorm:"column:check_interval_seconds;not null" json:"check_interval_seconds"`
	TimeoutSeconds       int        `gorm:"column:timeout_seconds;not null" json:"timeout_seconds"`
	ExpectedStatus       int        `gorm:"column:expected_status;not null" json:"expected_status"`
	Keyword              string     `gorm:"column:keyword" json:"keyword"`
	Enabled              bool       `gorm:"column:enabled;not null" json:"enabled"`
	Status               string     `gorm:"column:status;not null" json:"status"`
	AvailabilityScore    float64    `gorm:"column:availability_score;not null" json:"availability_score"`
	LastCheckedAt        *time.Time `gorm:"column:last_checked_at" json:"last_checked_at,omitempty"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (BusinessSite) TableName() string {
	return "business_sites"
}

func (s *BusinessSite) BeforeCreate(tx *gorm.DB) error {
	if s.ExpectedStatus == 0 {
		s.ExpectedStatus = 200
	}
	if s.Status == "" {
		s.Status = SiteStatusUnknown
	}
	return nil
}
