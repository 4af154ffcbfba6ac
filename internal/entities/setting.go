package entities

import (
	"time"
)

type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "user_settings"
}

// Known setting keys
const (
	// Advisory cap on simultaneously "reading" entries. Displayed by
	// clients, never enforced by the server.
	SettingKeyWIPLimit = "wip_limit"
)

// DefaultWIPLimit is used when the wip_limit setting is absent or invalid.
const DefaultWIPLimit = 5
