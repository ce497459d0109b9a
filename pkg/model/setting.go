package model

import "time"

// Setting is a named panel setting. Well-known names are seeded by the
// migrations; unknown names are allowed for forward compatibility.
type Setting struct {
	Name      string    `gorm:"column:name;primaryKey" json:"name"`
	Value     string    `gorm:"column:value" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
