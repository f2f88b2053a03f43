package services

import (
	"context"
	"fmt"
	"time"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/passcode"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CardView is the participant's virtual card.
type CardView struct {
	RegistrationID  uuid.UUID                    `json:"registration_id"`
	ParticipantName string                       `json:"participant_name"`
	EventName       string                       `json:"event_name"`
	EventDate       time.Time                    `json:"event_date"`
	Local           string                       `json:"local"`
	Status          lifecycle.RegistrationStatus `json:"status"`
	QRCodeData      string                       `json:"qr_code_data"`
}

type RegistrationService struct {
	store  *store.Store
	log    *zap.Logger
	signer *passcode.Signer
	opts   options
}

func NewRegistrationService(st *store.Store, log *zap.Logger, signer *passcode.Signer, opts ...Option) *RegistrationService {
	return &RegistrationService{
		store:  st,
		log:    log,
		signer: signer,
		opts:   buildOptions(opts),
	}
}

// Register enrolls participantID in eventID. A previously canceled
// registration for the same pair is reactivated in place.
func (s *RegistrationService) Register(ctx context.Context, participantID, eventID uuid.UUID) (*models.Registration, error) {
	now := s.opts.clock()
	var registration models.Registration
	reactivated := false

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		var event models.Event
		if err := lockEvent(tx, eventID, &event); err != nil {
			return err
		}
		if err := checkRegistrationWindow(&event, now); err != nil {
			return err
		}

		var existing models.Registration
		err := store.ForUpdate(tx).
			Where("event_id = ? AND user_id = ?", eventID, participantID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Status.Live() {
				return apperror.WithMetadata(apperror.CodeAlreadyRegistered, "Already registered.",
					map[string]string{"registration_id": existing.ID.String(), "status": string(existing.Status)})
			}
		case store.IsNotFound(err):
		default:
			return fmt.Errorf("load registration: %w", err)
		}

		if err := checkSeats(tx, &event); err != nil {
			return err
		}

		status := lifecycle.InitialRegistrationStatus(event.RequiresApproval)

		if existing.ID != uuid.Nil {
			res := tx.Model(&models.Registration{}).
				Where("id = ? AND status = ?", existing.ID, lifecycle.RegistrationCanceled).
				Updates(map[string]interface{}{"status": status, "registered_at": now})
			if res.Error != nil {
				return fmt.Errorf("reactivate registration: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperror.WithMetadata(apperror.CodeAlreadyRegistered, "Already registered.",
					map[string]string{"registration_id": existing.ID.String()})
			}
			existing.Status = status
			existing.RegisteredAt = now
			registration = existing
			reactivated = true
			return nil
		}

		registration = models.Registration{
			EventID:      eventID,
			UserID:       participantID,
			Status:       status,
			RegisteredAt: now,
		}
		if err := tx.Create(&registration).Error; err != nil {
			if store.IsDuplicate(err) {
				return apperror.New(apperror.CodeAlreadyRegistered, "Already registered.")
			}
			return fmt.Errorf("create registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participant registered",
		zap.String("registration_id", registration.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("status", string(registration.Status)),
		zap.Bool("reactivated", reactivated))
	return &registration, nil
}

func checkRegistrationWindow(event *models.Event, now time.Time) error {
	if event.Status.Terminal() {
		return apperror.WithMetadata(apperror.CodeRegistrationClosed, fmt.Sprintf("Event is %s.", event.Status),
			map[string]string{"event_status": string(event.Status)})
	}
	if event.RegistrationStart != nil && now.Before(*event.RegistrationStart) {
		return apperror.WithMetadata(apperror.CodeRegistrationNotOpen, "Registration has not started yet.",
			map[string]string{"registration_start": event.RegistrationStart.Format(time.RFC3339)})
	}
	if event.RegistrationEnd != nil && now.After(*event.RegistrationEnd) {
		return apperror.WithMetadata(apperror.CodeRegistrationClosed, "Registration is closed.",
			map[string]string{"registration_end": event.RegistrationEnd.Format(time.RFC3339)})
	}
	return nil
}

func checkSeats(tx *gorm.DB, event *models.Event) error {
	if event.MaxAttendees == nil {
		return nil
	}
	var taken int64
	err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status IN ?", event.ID, lifecycle.SeatHolding).
		Count(&taken).Error
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if taken >= int64(*event.MaxAttendees) {
		return apperror.WithMetadata(apperror.CodeEventFull, "Event is full.",
			map[string]string{"max_attendees": fmt.Sprint(*event.MaxAttendees)})
	}
	return nil
}

// CancelRegistration withdraws the participant's own registration. Canceling
// an already canceled registration returns it unchanged.
func (s *RegistrationService) CancelRegistration(ctx context.Context, participantID, registrationID uuid.UUID) (*models.Registration, error) {
	var registration models.Registration
	changed := false

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		if err := lockRegistration(tx, registrationID, &registration); err != nil {
			return err
		}
		if registration.UserID != participantID {
			return apperror.New(apperror.CodeForbidden, "You can only cancel your own registration.")
		}

		switch registration.Status {
		case lifecycle.RegistrationCheckedIn:
			return apperror.WithMetadata(apperror.CodeAlreadyCheckedIn, "Cannot cancel after check-in.",
				map[string]string{"status": string(registration.Status)})
		case lifecycle.RegistrationCanceled:
			return nil
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", registration.ID, registration.Status).
			Update("status", lifecycle.RegistrationCanceled)
		if res.Error != nil {
			return fmt.Errorf("cancel registration: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.WithMetadata(apperror.CodeInvalidTransition,
				"Registration changed concurrently.",
				map[string]string{"status": string(registration.Status)})
		}
		registration.Status = lifecycle.RegistrationCanceled
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("registration canceled", zap.String("registration_id", registration.ID.String()))
	}
	return &registration, nil
}

// UpdateRegistrationStatus records the organizer's approve or reject decision.
func (s *RegistrationService) UpdateRegistrationStatus(ctx context.Context, organizerID, registrationID uuid.UUID, status lifecycle.RegistrationStatus) (*models.Registration, error) {
	if status != lifecycle.RegistrationApproved && status != lifecycle.RegistrationRejected {
		return nil, apperror.WithMetadata(apperror.CodeInvalidInput,
			"Status must be approved or rejected.",
			map[string]string{"status": string(status)})
	}

	var registration models.Registration
	var from lifecycle.RegistrationStatus
	changed := false

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		if err := lockRegistration(tx, registrationID, &registration); err != nil {
			return err
		}
		var event models.Event
		if err := loadEvent(tx, registration.EventID, &event); err != nil {
			return err
		}
		if err := requireOrganizer(&event, organizerID, "You do not have permission to manage this registration."); err != nil {
			return err
		}
		if !event.Status.AcceptsRegistrationDecisions() {
			return apperror.WithMetadata(apperror.CodeInvalidTransition,
				fmt.Sprintf("Event is %s.", event.Status),
				map[string]string{"event_status": string(event.Status)})
		}

		var err error
		changed, err = lifecycle.Decide(registration.Status, status)
		if err != nil || !changed {
			return err
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", registration.ID, registration.Status).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("update registration status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.WithMetadata(apperror.CodeInvalidTransition,
				"Registration changed concurrently.",
				map[string]string{"status": string(registration.Status)})
		}
		from = registration.Status
		registration.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("registration status changed",
			zap.String("registration_id", registration.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(status)))
	}
	return &registration, nil
}

// VirtualCard returns the card of an approved or confirmed registration.
func (s *RegistrationService) VirtualCard(ctx context.Context, participantID, registrationID uuid.UUID) (*CardView, error) {
	var registration models.Registration
	err := s.store.DB(ctx).
		Preload("Event").
		Preload("User").
		Where("id = ?", registrationID).
		First(&registration).Error
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperror.New(apperror.CodeNotFound, "Registration not found.")
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}

	if registration.UserID != participantID {
		return nil, apperror.New(apperror.CodeForbidden, "This registration belongs to another participant.")
	}
	if !registration.Status.CardEligible() {
		return nil, apperror.WithMetadata(apperror.CodeNotEligible,
			"You must have an approved or confirmed registration to access the virtual card.",
			map[string]string{"status": string(registration.Status)})
	}
	if registration.Event == nil {
		return nil, apperror.New(apperror.CodeNotFound, "Event not found.")
	}

	card := &CardView{
		RegistrationID: registration.ID,
		EventName:      registration.Event.Title,
		EventDate:      registration.Event.StartDate,
		Local:          registration.Event.Location(),
		Status:         registration.Status,
		QRCodeData:     s.signer.Encode(registration.ID, registration.EventID),
	}
	if registration.User != nil {
		card.ParticipantName = registration.User.Name
	}
	return card, nil
}
