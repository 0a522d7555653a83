package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskShare grants visibility of one task to one email address. A task has
// zero or more shares; (task, email) pairs are unique.
type TaskShare struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TaskID          uuid.UUID `gorm:"type:uuid;not null;index"`
	SharedWithEmail string    `gorm:"not null;index"`
	SharedByUserID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`

	Task     Task `gorm:"foreignKey:TaskID"`
	SharedBy User `gorm:"foreignKey:SharedByUserID"`
}
