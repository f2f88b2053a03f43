package models

import (
	"time"

	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registration holds one participant's place on one event. The (event, user)
// pair is unique: a canceled row is reactivated rather than duplicated.
type Registration struct {
	ID                uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	EventID           uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_event_user" json:"event_id"`
	Event             *Event                       `gorm:"foreignKey:EventID" json:"event,omitempty"`
	UserID            uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_event_user;index" json:"user_id"`
	User              *User                        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status            lifecycle.RegistrationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RegisteredAt      time.Time                    `gorm:"not null" json:"registered_at"`
	PaymentAt         *time.Time                   `json:"payment_at,omitempty"`
	CheckinsCount     int                          `gorm:"not null" json:"checkins_count"`
	CertificateIssued bool                         `gorm:"not null" json:"certificate_issued"`
	CheckIns          []CheckIn                    `gorm:"foreignKey:RegistrationID" json:"checkins,omitempty"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

func (registration *Registration) BeforeCreate(tx *gorm.DB) (err error) {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	return
}
