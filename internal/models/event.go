package models

import (
	"time"

	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventType string

const (
	EventFree EventType = "free"
	EventPaid EventType = "paid"
)

// DefaultAllowedCheckins applies when an event does not configure its own
// check-in allowance.
const DefaultAllowedCheckins = 1

type Event struct {
	ID                uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID       uuid.UUID             `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer         *User                 `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Title             string                `gorm:"not null" json:"title"`
	Description       string                `gorm:"not null" json:"description"`
	LocalAddress      *string               `json:"local_address,omitempty"`
	LocalURL          *string               `json:"local_url,omitempty"`
	StartDate         time.Time             `gorm:"not null;index" json:"start_date"`
	EndDate           time.Time             `gorm:"not null" json:"end_date"`
	Price             float64               `gorm:"not null" json:"price"`
	Type              EventType             `gorm:"type:varchar(16);not null" json:"type"`
	RequiresApproval  bool                  `gorm:"not null" json:"requires_approval"`
	RegistrationStart *time.Time            `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time            `json:"registration_end,omitempty"`
	MaxAttendees      *int                  `json:"max_attendees,omitempty"`
	AllowedCheckins   int                   `gorm:"not null" json:"allowed_checkins"`
	Status            lifecycle.EventStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	BannerURL         *string               `json:"banner_url,omitempty"`
	WorkloadHours     int                   `gorm:"not null" json:"workload_hours"`
	CreatedAt         time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// CheckinAllowance is the per-registration check-in cap.
func (event *Event) CheckinAllowance() int {
	if event.AllowedCheckins < 1 {
		return DefaultAllowedCheckins
	}
	return event.AllowedCheckins
}

// Location is the address shown on virtual cards.
func (event *Event) Location() string {
	if event.LocalAddress != nil && *event.LocalAddress != "" {
		return *event.LocalAddress
	}
	return "Online"
}
