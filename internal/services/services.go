// Package services implements the event and registration lifecycle on top of
// the transactional store: event transitions, the registration workflow, the
// check-in ledger and the read projections.
package services

import (
	"fmt"
	"time"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type options struct {
	now func() time.Time

	// beforeCheckInWrite runs inside the CheckIn transaction after the
	// capacity check and before the conditional increment.
	beforeCheckInWrite func(tx *gorm.DB, registrationID uuid.UUID) error
}

// Option configures a service.
type Option func(*options)

// WithClock overrides the time source used for registration windows and
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

func loadEvent(tx *gorm.DB, eventID uuid.UUID, event *models.Event) error {
	if err := tx.Where("id = ?", eventID).First(event).Error; err != nil {
		if store.IsNotFound(err) {
			return apperror.New(apperror.CodeNotFound, "Event not found.")
		}
		return fmt.Errorf("load event: %w", err)
	}
	return nil
}

func lockEvent(tx *gorm.DB, eventID uuid.UUID, event *models.Event) error {
	return loadEvent(store.ForUpdate(tx), eventID, event)
}

func shareEvent(tx *gorm.DB, eventID uuid.UUID, event *models.Event) error {
	return loadEvent(store.ForShare(tx), eventID, event)
}

func lockRegistration(tx *gorm.DB, registrationID uuid.UUID, registration *models.Registration) error {
	return loadRegistration(store.ForUpdate(tx), registrationID, registration)
}

func loadRegistration(tx *gorm.DB, registrationID uuid.UUID, registration *models.Registration) error {
	if err := tx.Where("id = ?", registrationID).First(registration).Error; err != nil {
		if store.IsNotFound(err) {
			return apperror.New(apperror.CodeNotFound, "Registration not found.")
		}
		return fmt.Errorf("load registration: %w", err)
	}
	return nil
}

func requireOrganizer(event *models.Event, organizerID uuid.UUID, message string) error {
	if event.OrganizerID != organizerID {
		return apperror.New(apperror.CodeForbidden, message)
	}
	return nil
}
