package db

import (
	"time"

	"gorm.io/datatypes"
)

// Room is one persisted room document, keyed by its normalized code.
type Room struct {
	ID        uint           `gorm:"primaryKey"`
	Code      string         `gorm:"size:32;uniqueIndex;not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
