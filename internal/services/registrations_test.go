package services_test

import (
	"testing"
	"time"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/lifecycle"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterInitialStatus(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")

	open := f.publishedEvent(organizer.ID)
	gated := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })

	registration := f.register(alice.ID, open.ID)
	assert.Equal(t, lifecycle.RegistrationApproved, registration.Status)
	assert.Equal(t, fixedNow, registration.RegisteredAt)
	assert.Zero(t, registration.CheckinsCount)

	registration = f.register(alice.ID, gated.ID)
	assert.Equal(t, lifecycle.RegistrationPending, registration.Status)
}

func TestRegisterTwice(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	event := f.publishedEvent(organizer.ID)

	first := f.register(alice.ID, event.ID)
	_, err := f.registrations.Register(f.ctx, alice.ID, event.ID)
	require.ErrorIs(t, err, apperror.ErrAlreadyRegistered)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, first.ID.String(), appErr.Metadata["registration_id"])
}

func TestRegisterWindow(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")

	{ // draft event without a window
		event := f.draftEvent(organizer.ID)
		registration := f.register(alice.ID, event.ID)
		assert.Equal(t, lifecycle.RegistrationApproved, registration.Status)
	}

	{ // finished event
		event := f.publishedEvent(organizer.ID)
		_, err := f.events.FinishEvent(f.ctx, event.ID, organizer.ID)
		require.NoError(t, err)
		_, err = f.registrations.Register(f.ctx, alice.ID, event.ID)
		assert.ErrorIs(t, err, apperror.ErrRegistrationClosed)
	}

	{ // canceled event
		event := f.publishedEvent(organizer.ID)
		_, err := f.events.CancelEvent(f.ctx, event.ID, organizer.ID)
		require.NoError(t, err)
		_, err = f.registrations.Register(f.ctx, alice.ID, event.ID)
		require.ErrorIs(t, err, apperror.ErrRegistrationClosed)
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, "canceled", appErr.Metadata["event_status"])
	}

	{ // not started
		event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) {
			d.RegistrationStart = timePtr(fixedNow.Add(24 * time.Hour))
		})
		_, err := f.registrations.Register(f.ctx, alice.ID, event.ID)
		assert.ErrorIs(t, err, apperror.ErrRegistrationNotOpen)
	}

	{ // closed
		event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) {
			d.RegistrationStart = timePtr(fixedNow.Add(-48 * time.Hour))
			d.RegistrationEnd = timePtr(fixedNow.Add(-24 * time.Hour))
		})
		_, err := f.registrations.Register(f.ctx, alice.ID, event.ID)
		assert.ErrorIs(t, err, apperror.ErrRegistrationClosed)

		var count int64
		require.NoError(t, f.db.Table("registrations").Where("event_id = ?", event.ID).Count(&count).Error)
		assert.Zero(t, count)
	}

	{ // inside window
		event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) {
			d.RegistrationStart = timePtr(fixedNow.Add(-24 * time.Hour))
			d.RegistrationEnd = timePtr(fixedNow.Add(24 * time.Hour))
		})
		f.register(alice.ID, event.ID)
	}

	{ // unknown event
		_, err := f.registrations.Register(f.ctx, alice.ID, alice.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
}

func TestRegisterEventFull(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.MaxAttendees = intPtr(2) })

	f.register(alice.ID, event.ID)
	bobs := f.register(bob.ID, event.ID)

	_, err := f.registrations.Register(f.ctx, carol.ID, event.ID)
	require.ErrorIs(t, err, apperror.ErrEventFull)

	_, err = f.registrations.CancelRegistration(f.ctx, bob.ID, bobs.ID)
	require.NoError(t, err)
	f.register(carol.ID, event.ID)
}

func TestCancelAndReregister(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })

	registration := f.register(alice.ID, event.ID)

	canceled, err := f.registrations.CancelRegistration(f.ctx, alice.ID, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RegistrationCanceled, canceled.Status)

	again, err := f.registrations.CancelRegistration(f.ctx, alice.ID, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RegistrationCanceled, again.Status)

	f.now = fixedNow.Add(time.Hour)
	reactivated := f.register(alice.ID, event.ID)
	assert.Equal(t, registration.ID, reactivated.ID)
	assert.Equal(t, lifecycle.RegistrationPending, reactivated.Status)
	assert.Equal(t, fixedNow.Add(time.Hour), reactivated.RegisteredAt)

	var count int64
	require.NoError(t, f.db.Table("registrations").Where("event_id = ?", event.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCancelRegistrationGuards(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	bob := f.user("bob")
	event := f.publishedEvent(organizer.ID)
	registration := f.register(alice.ID, event.ID)

	_, err := f.registrations.CancelRegistration(f.ctx, bob.ID, registration.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.checkins.CheckIn(f.ctx, organizer.ID, registration.ID, lifecycle.CheckInManual)
	require.NoError(t, err)

	_, err = f.registrations.CancelRegistration(f.ctx, alice.ID, registration.ID)
	require.ErrorIs(t, err, apperror.ErrAlreadyCheckedIn)

	stored := f.reload(registration.ID)
	assert.Equal(t, lifecycle.RegistrationCheckedIn, stored.Status)
	assert.Equal(t, 1, stored.CheckinsCount)
}

func TestCancelRejectedRegistration(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })
	registration := f.register(alice.ID, event.ID)

	_, err := f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationRejected)
	require.NoError(t, err)

	_, err = f.registrations.Register(f.ctx, alice.ID, event.ID)
	require.ErrorIs(t, err, apperror.ErrAlreadyRegistered)

	canceled, err := f.registrations.CancelRegistration(f.ctx, alice.ID, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RegistrationCanceled, canceled.Status)
	assert.Equal(t, lifecycle.RegistrationCanceled, f.reload(registration.ID).Status)

	reactivated := f.register(alice.ID, event.ID)
	assert.Equal(t, registration.ID, reactivated.ID)
	assert.Equal(t, lifecycle.RegistrationPending, reactivated.Status)
}

func TestUpdateRegistrationStatus(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })
	registration := f.register(alice.ID, event.ID)

	approved, err := f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationApproved)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RegistrationApproved, approved.Status)

	same, err := f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationApproved)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RegistrationApproved, same.Status)

	_, err = f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationConfirmed)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.checkins.CheckIn(f.ctx, organizer.ID, registration.ID, lifecycle.CheckInManual)
	require.NoError(t, err)
	_, err = f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationRejected)
	assert.ErrorIs(t, err, apperror.ErrAlreadyCheckedIn)
}

func TestUpdateRegistrationStatusByStranger(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	mallory := f.user("mallory")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })
	registration := f.register(alice.ID, event.ID)
	before := f.reload(registration.ID)

	_, err := f.registrations.UpdateRegistrationStatus(f.ctx, mallory.ID, registration.ID, lifecycle.RegistrationApproved)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	after := f.reload(registration.ID)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestUpdateRegistrationStatusClosedEvent(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) { d.RequiresApproval = true })
	registration := f.register(alice.ID, event.ID)

	_, err := f.events.CancelEvent(f.ctx, event.ID, organizer.ID)
	require.NoError(t, err)

	_, err = f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationApproved)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestVirtualCard(t *testing.T) {
	f := newFixture(t)
	organizer := f.user("organizer")
	alice := f.user("alice")
	bob := f.user("bob")
	address := "Main Hall"
	event := f.publishedEvent(organizer.ID, func(d *services.EventDraft) {
		d.RequiresApproval = true
		d.LocalAddress = &address
	})
	registration := f.register(alice.ID, event.ID)

	_, err := f.registrations.VirtualCard(f.ctx, alice.ID, registration.ID)
	require.ErrorIs(t, err, apperror.ErrNotEligible)

	_, err = f.registrations.UpdateRegistrationStatus(f.ctx, organizer.ID, registration.ID, lifecycle.RegistrationApproved)
	require.NoError(t, err)

	card, err := f.registrations.VirtualCard(f.ctx, alice.ID, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", card.ParticipantName)
	assert.Equal(t, "Go Meetup", card.EventName)
	assert.Equal(t, address, card.Local)
	assert.Equal(t, lifecycle.RegistrationApproved, card.Status)

	decoded, err := f.signer.Decode(card.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, registration.ID, decoded)

	_, err = f.registrations.VirtualCard(f.ctx, bob.ID, registration.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
