package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/passcode"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/farellandr/rollcall/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	st  *store.Store
	log *zap.Logger
	now time.Time

	signer        *passcode.Signer
	users         *services.UserService
	events        *services.EventService
	registrations *services.RegistrationService
	checkins      *services.CheckInService
	queries       *services.QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, db := storetest.OpenStore(t)
	log := zaptest.NewLogger(t)
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		st:     st,
		log:    log,
		now:    fixedNow,
		signer: passcode.NewSigner("test-card-secret"),
	}
	clock := services.WithClock(func() time.Time { return f.now })

	f.users = services.NewUserService(st, log)
	f.events = services.NewEventService(st, log, clock)
	f.registrations = services.NewRegistrationService(st, log, f.signer, clock)
	f.checkins = services.NewCheckInService(st, log, f.signer, clock)
	f.queries = services.NewQueryService(st, clock)
	return f
}

// checkInsWith builds a CheckInService on the fixture's store with extra
// options.
func (f *fixture) checkInsWith(opts ...services.Option) *services.CheckInService {
	opts = append([]services.Option{services.WithClock(func() time.Time { return f.now })}, opts...)
	return services.NewCheckInService(f.st, f.log, f.signer, opts...)
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "unused",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) draft(mutate ...func(*services.EventDraft)) services.EventDraft {
	d := services.EventDraft{
		Title:       "Go Meetup",
		Description: "Monthly gathering of gophers.",
		StartDate:   fixedNow.Add(7 * 24 * time.Hour),
		EndDate:     fixedNow.Add(7*24*time.Hour + 3*time.Hour),
		Type:        models.EventFree,
	}
	for _, m := range mutate {
		m(&d)
	}
	return d
}

func (f *fixture) draftEvent(organizerID uuid.UUID, mutate ...func(*services.EventDraft)) *models.Event {
	f.t.Helper()
	event, err := f.events.CreateEvent(f.ctx, organizerID, f.draft(mutate...))
	require.NoError(f.t, err)
	return event
}

func (f *fixture) publishedEvent(organizerID uuid.UUID, mutate ...func(*services.EventDraft)) *models.Event {
	f.t.Helper()
	event := f.draftEvent(organizerID, mutate...)
	event, err := f.events.PublishEvent(f.ctx, event.ID, organizerID)
	require.NoError(f.t, err)
	return event
}

func (f *fixture) register(participantID, eventID uuid.UUID) *models.Registration {
	f.t.Helper()
	registration, err := f.registrations.Register(f.ctx, participantID, eventID)
	require.NoError(f.t, err)
	return registration
}

func (f *fixture) reload(registrationID uuid.UUID) models.Registration {
	f.t.Helper()
	var registration models.Registration
	require.NoError(f.t, f.db.Where("id = ?", registrationID).First(&registration).Error)
	return registration
}

func (f *fixture) ledgerSize(registrationID uuid.UUID) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&models.CheckIn{}).Where("registration_id = ?", registrationID).Count(&n).Error)
	return n
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
