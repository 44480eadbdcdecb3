package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SiteSetting is a keyed JSON document of public site configuration.
type SiteSetting struct {
	Key       string         `gorm:"column:key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;not null" json:"value"`
	UpdatedBy *uuid.UUID     `gorm:"column:updated_by;type:uuid" json:"updated_by,omitempty"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
