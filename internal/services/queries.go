package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// EventFilter narrows ListEvents. Zero values mean no constraint.
type EventFilter struct {
	Title     string
	Type      models.EventType
	Status    lifecycle.EventStatus
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int
	Limit     int
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// RegistrationView is a registration as the organizer sees it.
type RegistrationView struct {
	ID              uuid.UUID                    `json:"id"`
	EventID         uuid.UUID                    `json:"event_id"`
	User            models.UserSummary           `json:"user"`
	Status          lifecycle.RegistrationStatus `json:"status"`
	RegisteredAt    time.Time                    `json:"registered_at"`
	CheckinsCount   int                          `json:"checkins_count"`
	LastCheckedInAt *time.Time                   `json:"last_checked_in_at"`
}

// DashboardStats summarizes an organizer's events.
type DashboardStats struct {
	TotalEvents        int64         `json:"total_events"`
	TotalRegistrations int64         `json:"total_registrations"`
	NextEvent          *models.Event `json:"next_event"`
}

// QueryService serves the read side. It never mutates state.
type QueryService struct {
	store *store.Store
	opts  options
}

func NewQueryService(st *store.Store, opts ...Option) *QueryService {
	return &QueryService{store: st, opts: buildOptions(opts)}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func paginate[T any](query *gorm.DB, page, limit int, order string) (*Page[T], error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	items := []T{}
	err := query.Session(&gorm.Session{}).
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// ListEvents is the public catalogue. Drafts are hidden unless the filter
// asks for a status explicitly.
func (s *QueryService) ListEvents(ctx context.Context, filter EventFilter) (*Page[models.Event], error) {
	query := s.store.DB(ctx).Model(&models.Event{})

	if title := strings.TrimSpace(filter.Title); title != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(title)+"%")
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, invalidInput(fmt.Sprintf("Unknown event status %q.", filter.Status), "status")
		}
		query = query.Where("status = ?", filter.Status)
	} else {
		query = query.Where("status <> ?", lifecycle.EventDraft)
	}
	if filter.StartFrom != nil {
		query = query.Where("start_date >= ?", filter.StartFrom.UTC())
	}
	if filter.StartTo != nil {
		query = query.Where("start_date <= ?", filter.StartTo.UTC())
	}

	return paginate[models.Event](query, filter.Page, filter.Limit, "start_date ASC")
}

// ListMyEvents returns every event organized by organizerID, newest first.
func (s *QueryService) ListMyEvents(ctx context.Context, organizerID uuid.UUID, page, limit int) (*Page[models.Event], error) {
	query := s.store.DB(ctx).Model(&models.Event{}).Where("organizer_id = ?", organizerID)
	return paginate[models.Event](query, page, limit, "created_at DESC")
}

// ListEventRegistrations lists every registration of an event, optionally
// restricted to one status. Organizer only.
func (s *QueryService) ListEventRegistrations(ctx context.Context, organizerID, eventID uuid.UUID, status lifecycle.RegistrationStatus) ([]RegistrationView, error) {
	db := s.store.DB(ctx)

	var event models.Event
	if err := loadEvent(db, eventID, &event); err != nil {
		return nil, err
	}
	if err := requireOrganizer(&event, organizerID, "You do not have permission to view registrations for this event."); err != nil {
		return nil, err
	}

	query := db.Preload("User").
		Preload("CheckIns", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("checked_in_at DESC")
		}).
		Where("event_id = ?", eventID)
	if status != "" {
		if !status.Valid() {
			return nil, invalidInput(fmt.Sprintf("Unknown registration status %q.", status), "status")
		}
		query = query.Where("status = ?", status)
	}

	var registrations []models.Registration
	if err := query.Order("registered_at ASC").Find(&registrations).Error; err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	views := make([]RegistrationView, 0, len(registrations))
	for _, r := range registrations {
		view := RegistrationView{
			ID:            r.ID,
			EventID:       r.EventID,
			Status:        r.Status,
			RegisteredAt:  r.RegisteredAt,
			CheckinsCount: r.CheckinsCount,
		}
		if r.User != nil {
			view.User = r.User.Summary()
		}
		if len(r.CheckIns) > 0 {
			last := r.CheckIns[0].CheckedInAt
			view.LastCheckedInAt = &last
		}
		views = append(views, view)
	}
	return views, nil
}

// ListParticipants returns the users attending an event: approved,
// confirmed or already checked in.
func (s *QueryService) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.UserSummary, error) {
	db := s.store.DB(ctx)

	var event models.Event
	if err := loadEvent(db, eventID, &event); err != nil {
		return nil, err
	}

	var users []models.User
	err := db.Model(&models.User{}).
		Joins("JOIN registrations ON registrations.user_id = users.id").
		Where("registrations.event_id = ? AND registrations.status IN ?", eventID, lifecycle.Attending).
		Order("registrations.registered_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	participants := make([]models.UserSummary, 0, len(users))
	for i := range users {
		participants = append(participants, users[i].Summary())
	}
	return participants, nil
}

// ListMyRegistrations returns the participant's registrations with their
// events, most recent first.
func (s *QueryService) ListMyRegistrations(ctx context.Context, participantID uuid.UUID) ([]models.Registration, error) {
	registrations := []models.Registration{}
	err := s.store.DB(ctx).
		Preload("Event").
		Where("user_id = ?", participantID).
		Order("registered_at DESC").
		Find(&registrations).Error
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// HasSharedAttendedEvent reports whether two distinct users both attended at
// least one common event.
func (s *QueryService) HasSharedAttendedEvent(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	if userA == userB {
		return false, nil
	}

	var shared int64
	err := s.store.DB(ctx).
		Table("registrations AS r1").
		Joins("JOIN registrations AS r2 ON r2.event_id = r1.event_id").
		Where("r1.user_id = ? AND r2.user_id = ?", userA, userB).
		Where("r1.status IN ? AND r2.status IN ?", lifecycle.Attending, lifecycle.Attending).
		Count(&shared).Error
	if err != nil {
		return false, fmt.Errorf("shared attended event: %w", err)
	}
	return shared > 0, nil
}

// RegistrationStatus returns the participant's current status for an event,
// or nil when they never registered.
func (s *QueryService) RegistrationStatus(ctx context.Context, participantID, eventID uuid.UUID) (*lifecycle.RegistrationStatus, error) {
	var registration models.Registration
	err := s.store.DB(ctx).
		Select("status").
		Where("event_id = ? AND user_id = ?", eventID, participantID).
		First(&registration).Error
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registration status: %w", err)
	}
	status := registration.Status
	return &status, nil
}

// CanReview reports whether the participant may review the event: the event
// must be finished and the participant must have checked in.
func (s *QueryService) CanReview(ctx context.Context, participantID, eventID uuid.UUID) error {
	db := s.store.DB(ctx)

	var event models.Event
	if err := loadEvent(db, eventID, &event); err != nil {
		return err
	}
	if event.Status != lifecycle.EventFinished {
		return apperror.WithMetadata(apperror.CodeNotEligible, "Event has not finished yet.",
			map[string]string{"event_status": string(event.Status)})
	}

	status, err := s.RegistrationStatus(ctx, participantID, eventID)
	if err != nil {
		return err
	}
	if status == nil || *status != lifecycle.RegistrationCheckedIn {
		metadata := map[string]string{}
		if status != nil {
			metadata["status"] = string(*status)
		}
		return apperror.WithMetadata(apperror.CodeNotEligible, "Only checked-in participants can review this event.", metadata)
	}
	return nil
}

// DashboardStats aggregates the organizer's event count, the registrations
// across those events and the next upcoming event.
func (s *QueryService) DashboardStats(ctx context.Context, organizerID uuid.UUID) (*DashboardStats, error) {
	db := s.store.DB(ctx)
	stats := &DashboardStats{}

	if err := db.Model(&models.Event{}).Where("organizer_id = ?", organizerID).Count(&stats.TotalEvents).Error; err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	err := db.Model(&models.Registration{}).
		Joins("JOIN events ON events.id = registrations.event_id").
		Where("events.organizer_id = ?", organizerID).
		Count(&stats.TotalRegistrations).Error
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	var next models.Event
	err = db.Where("organizer_id = ? AND start_date > ? AND status <> ?", organizerID, s.opts.clock(), lifecycle.EventCanceled).
		Order("start_date ASC").
		First(&next).Error
	switch {
	case err == nil:
		stats.NextEvent = &next
	case store.IsNotFound(err):
	default:
		return nil, fmt.Errorf("next event: %w", err)
	}
	return stats, nil
}
