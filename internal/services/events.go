package services

import (
	"context"
	"fmt"
	"time"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventDraft holds the organizer-supplied fields of an event.
type EventDraft struct {
	Title             string           `json:"title" validate:"required,min=3"`
	Description       string           `json:"description" validate:"required,min=10"`
	LocalAddress      *string          `json:"local_address"`
	LocalURL          *string          `json:"local_url" validate:"omitempty,url"`
	StartDate         time.Time        `json:"start_date" validate:"required"`
	EndDate           time.Time        `json:"end_date" validate:"required,gtfield=StartDate"`
	Price             float64          `json:"price" validate:"gte=0"`
	Type              models.EventType `json:"type" validate:"oneof=free paid"`
	RequiresApproval  bool             `json:"requires_approval"`
	RegistrationStart *time.Time       `json:"registration_start"`
	RegistrationEnd   *time.Time       `json:"registration_end"`
	MaxAttendees      *int             `json:"max_attendees" validate:"omitempty,gt=0"`
	AllowedCheckins   int              `json:"allowed_checkins" validate:"gte=1"`
	WorkloadHours     int              `json:"workload_hours" validate:"gte=0"`
}

// EventPatch carries the fields of an update; nil fields are left untouched.
type EventPatch struct {
	Title             *string           `json:"title"`
	Description       *string           `json:"description"`
	LocalAddress      *string           `json:"local_address"`
	LocalURL          *string           `json:"local_url"`
	StartDate         *time.Time        `json:"start_date"`
	EndDate           *time.Time        `json:"end_date"`
	Price             *float64          `json:"price"`
	Type              *models.EventType `json:"type"`
	RequiresApproval  *bool             `json:"requires_approval"`
	RegistrationStart *time.Time        `json:"registration_start"`
	RegistrationEnd   *time.Time        `json:"registration_end"`
	MaxAttendees      *int              `json:"max_attendees"`
	AllowedCheckins   *int              `json:"allowed_checkins"`
	WorkloadHours     *int              `json:"workload_hours"`
}

type EventService struct {
	store    *store.Store
	log      *zap.Logger
	validate *validator.Validate
	opts     options
}

func NewEventService(st *store.Store, log *zap.Logger, opts ...Option) *EventService {
	return &EventService{
		store:    st,
		log:      log,
		validate: newValidator(),
		opts:     buildOptions(opts),
	}
}

// CreateEvent stores a new draft event owned by organizerID.
func (s *EventService) CreateEvent(ctx context.Context, organizerID uuid.UUID, draft EventDraft) (*models.Event, error) {
	if draft.Type == "" {
		draft.Type = models.EventFree
	}
	if draft.AllowedCheckins == 0 {
		draft.AllowedCheckins = models.DefaultAllowedCheckins
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	event := models.Event{
		OrganizerID:       organizerID,
		Title:             draft.Title,
		Description:       draft.Description,
		LocalAddress:      draft.LocalAddress,
		LocalURL:          draft.LocalURL,
		StartDate:         draft.StartDate.UTC(),
		EndDate:           draft.EndDate.UTC(),
		Price:             draft.Price,
		Type:              draft.Type,
		RequiresApproval:  draft.RequiresApproval,
		RegistrationStart: utcPtr(draft.RegistrationStart),
		RegistrationEnd:   utcPtr(draft.RegistrationEnd),
		MaxAttendees:      draft.MaxAttendees,
		AllowedCheckins:   draft.AllowedCheckins,
		Status:            lifecycle.EventDraft,
		WorkloadHours:     draft.WorkloadHours,
	}

	if err := s.store.DB(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("organizer_id", organizerID.String()))
	return &event, nil
}

// GetEvent returns an event by id.
func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := loadEvent(s.store.DB(ctx).Preload("Organizer"), eventID, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) PublishEvent(ctx context.Context, eventID, organizerID uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, eventID, organizerID, lifecycle.ActionPublish)
}

func (s *EventService) CancelEvent(ctx context.Context, eventID, organizerID uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, eventID, organizerID, lifecycle.ActionCancel)
}

func (s *EventService) FinishEvent(ctx context.Context, eventID, organizerID uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, eventID, organizerID, lifecycle.ActionFinish)
}

// RevertEventToDraft takes a published or canceled event back to draft.
func (s *EventService) RevertEventToDraft(ctx context.Context, eventID, organizerID uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, eventID, organizerID, lifecycle.ActionRevertToDraft)
}

func (s *EventService) transition(ctx context.Context, eventID, organizerID uuid.UUID, action lifecycle.Action) (*models.Event, error) {
	var event models.Event
	var from lifecycle.EventStatus

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		if err := lockEvent(tx, eventID, &event); err != nil {
			return err
		}
		if err := requireOrganizer(&event, organizerID, "You do not have permission to manage this event."); err != nil {
			return err
		}

		next, err := lifecycle.NextEventStatus(event.Status, action)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Event{}).
			Where("id = ? AND status = ?", event.ID, event.Status).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("update event status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.WithMetadata(apperror.CodeInvalidTransition,
				"Event status changed concurrently.",
				map[string]string{"action": string(action), "status": string(event.Status)})
		}

		from = event.Status
		event.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event status changed",
		zap.String("event_id", event.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(event.Status)))
	return &event, nil
}

// UpdateEvent applies the present fields of patch. Status is never touched.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, organizerID uuid.UUID, patch EventPatch) (*models.Event, error) {
	var event models.Event

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		if err := lockEvent(tx, eventID, &event); err != nil {
			return err
		}
		if err := requireOrganizer(&event, organizerID, "You do not have permission to edit this event."); err != nil {
			return err
		}
		if err := lifecycle.CanUpdateEvent(event.Status); err != nil {
			return err
		}

		draft := draftFromEvent(&event)
		columns := applyPatch(&draft, patch)
		if len(columns) == 0 {
			return nil
		}
		if err := s.validateDraft(draft); err != nil {
			return err
		}

		// CheckIn share-locks the event row, so no counter moves while this
		// transaction holds it.
		if patch.AllowedCheckins != nil {
			var highest int
			err := tx.Model(&models.Registration{}).
				Select("COALESCE(MAX(checkins_count), 0)").
				Where("event_id = ?", event.ID).
				Scan(&highest).Error
			if err != nil {
				return fmt.Errorf("read check-in counts: %w", err)
			}
			if *patch.AllowedCheckins < highest {
				return apperror.WithMetadata(apperror.CodeInvalidInput,
					"Allowed check-ins cannot be lower than check-ins already recorded.",
					map[string]string{"field": "allowed_checkins", "recorded": fmt.Sprint(highest)})
			}
		}

		if err := tx.Model(&event).Updates(columns).Error; err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return loadEvent(tx, event.ID, &event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated", zap.String("event_id", event.ID.String()))
	return &event, nil
}

// SetEventBanner stores the banner location of an editable event and returns
// the previous one so the caller can discard it.
func (s *EventService) SetEventBanner(ctx context.Context, eventID, organizerID uuid.UUID, bannerURL string) (previous *string, err error) {
	err = s.store.InTx(ctx, func(tx *gorm.DB) error {
		var event models.Event
		if err := lockEvent(tx, eventID, &event); err != nil {
			return err
		}
		if err := requireOrganizer(&event, organizerID, "You do not have permission to edit this event."); err != nil {
			return err
		}
		if err := lifecycle.CanUpdateEvent(event.Status); err != nil {
			return err
		}
		previous = event.BannerURL
		if err := tx.Model(&event).Update("banner_url", bannerURL).Error; err != nil {
			return fmt.Errorf("update event banner: %w", err)
		}
		return nil
	})
	return previous, err
}

func (s *EventService) validateDraft(draft EventDraft) error {
	if err := s.validate.Struct(draft); err != nil {
		return validationError(err)
	}
	if draft.RegistrationStart != nil && draft.RegistrationEnd != nil &&
		draft.RegistrationEnd.Before(*draft.RegistrationStart) {
		return invalidInput("Registration end must not be before registration start.", "registration_end")
	}
	return nil
}

func draftFromEvent(event *models.Event) EventDraft {
	return EventDraft{
		Title:             event.Title,
		Description:       event.Description,
		LocalAddress:      event.LocalAddress,
		LocalURL:          event.LocalURL,
		StartDate:         event.StartDate,
		EndDate:           event.EndDate,
		Price:             event.Price,
		Type:              event.Type,
		RequiresApproval:  event.RequiresApproval,
		RegistrationStart: event.RegistrationStart,
		RegistrationEnd:   event.RegistrationEnd,
		MaxAttendees:      event.MaxAttendees,
		AllowedCheckins:   event.CheckinAllowance(),
		WorkloadHours:     event.WorkloadHours,
	}
}

// applyPatch merges patch into draft and returns the changed columns.
func applyPatch(draft *EventDraft, patch EventPatch) map[string]interface{} {
	columns := map[string]interface{}{}
	if patch.Title != nil {
		draft.Title = *patch.Title
		columns["title"] = *patch.Title
	}
	if patch.Description != nil {
		draft.Description = *patch.Description
		columns["description"] = *patch.Description
	}
	if patch.LocalAddress != nil {
		draft.LocalAddress = patch.LocalAddress
		columns["local_address"] = *patch.LocalAddress
	}
	if patch.LocalURL != nil {
		draft.LocalURL = patch.LocalURL
		columns["local_url"] = *patch.LocalURL
	}
	if patch.StartDate != nil {
		draft.StartDate = patch.StartDate.UTC()
		columns["start_date"] = draft.StartDate
	}
	if patch.EndDate != nil {
		draft.EndDate = patch.EndDate.UTC()
		columns["end_date"] = draft.EndDate
	}
	if patch.Price != nil {
		draft.Price = *patch.Price
		columns["price"] = *patch.Price
	}
	if patch.Type != nil {
		draft.Type = *patch.Type
		columns["type"] = *patch.Type
	}
	if patch.RequiresApproval != nil {
		draft.RequiresApproval = *patch.RequiresApproval
		columns["requires_approval"] = *patch.RequiresApproval
	}
	if patch.RegistrationStart != nil {
		draft.RegistrationStart = utcPtr(patch.RegistrationStart)
		columns["registration_start"] = *draft.RegistrationStart
	}
	if patch.RegistrationEnd != nil {
		draft.RegistrationEnd = utcPtr(patch.RegistrationEnd)
		columns["registration_end"] = *draft.RegistrationEnd
	}
	if patch.MaxAttendees != nil {
		draft.MaxAttendees = patch.MaxAttendees
		columns["max_attendees"] = *patch.MaxAttendees
	}
	if patch.AllowedCheckins != nil {
		draft.AllowedCheckins = *patch.AllowedCheckins
		columns["allowed_checkins"] = *patch.AllowedCheckins
	}
	if patch.WorkloadHours != nil {
		draft.WorkloadHours = *patch.WorkloadHours
		columns["workload_hours"] = *patch.WorkloadHours
	}
	return columns
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
