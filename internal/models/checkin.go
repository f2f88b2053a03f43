package models

import (
	"time"

	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckIn is an append-only attendance record. The number of rows for a
// registration always equals Registration.CheckinsCount.
type CheckIn struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	RegistrationID uuid.UUID               `gorm:"type:uuid;not null;index" json:"registration_id"`
	Method         lifecycle.CheckInMethod `gorm:"type:varchar(16);not null" json:"method"`
	CheckedBy      uuid.UUID               `gorm:"type:uuid;not null" json:"checked_by"`
	CheckedInAt    time.Time               `gorm:"not null" json:"checked_in_at"`
}

func (CheckIn) TableName() string {
	return "checkins"
}

func (checkIn *CheckIn) BeforeCreate(tx *gorm.DB) (err error) {
	if checkIn.ID == uuid.Nil {
		checkIn.ID = uuid.New()
	}
	return
}
