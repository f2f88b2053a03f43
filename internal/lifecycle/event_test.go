package lifecycle

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextEventStatus(t *testing.T) {
	tests := []struct {
		from   EventStatus
		action Action
		want   EventStatus
		ok     bool
	}{
		{EventDraft, ActionPublish, EventPublished, true},
		{EventDraft, ActionCancel, EventCanceled, true},
		{EventDraft, ActionFinish, "", false},
		{EventDraft, ActionRevertToDraft, "", false},
		{EventPublished, ActionPublish, "", false},
		{EventPublished, ActionCancel, EventCanceled, true},
		{EventPublished, ActionFinish, EventFinished, true},
		{EventPublished, ActionRevertToDraft, EventDraft, true},
		{EventCanceled, ActionPublish, "", false},
		{EventCanceled, ActionCancel, "", false},
		{EventCanceled, ActionFinish, "", false},
		{EventCanceled, ActionRevertToDraft, EventDraft, true},
		{EventFinished, ActionPublish, "", false},
		{EventFinished, ActionCancel, "", false},
		{EventFinished, ActionFinish, "", false},
		{EventFinished, ActionRevertToDraft, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := NextEventStatus(tt.from, tt.action)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperror.ErrInvalidTransition))

				appErr, ok := apperror.As(err)
				require.True(t, ok)
				assert.Equal(t, string(tt.from), appErr.Metadata["status"])
				assert.Equal(t, string(tt.action), appErr.Metadata["action"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanUpdateEvent(t *testing.T) {
	assert.NoError(t, CanUpdateEvent(EventDraft))
	assert.NoError(t, CanUpdateEvent(EventPublished))
	assert.ErrorIs(t, CanUpdateEvent(EventCanceled), apperror.ErrInvalidTransition)
	assert.ErrorIs(t, CanUpdateEvent(EventFinished), apperror.ErrInvalidTransition)
}

func TestEventStatusTerminal(t *testing.T) {
	assert.False(t, EventDraft.Terminal())
	assert.False(t, EventPublished.Terminal())
	assert.True(t, EventCanceled.Terminal())
	assert.True(t, EventFinished.Terminal())
}

func TestNextEventStatus_UnknownInputs(t *testing.T) {
	_, err := NextEventStatus("archived", ActionPublish)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = NextEventStatus(EventDraft, "delete")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = NextEventStatus(EventDraft, ActionUpdate)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

// Random call sequences only ever follow an edge of the table.
func TestNextEventStatus_RandomSequences(t *testing.T) {
	legal := map[EventStatus]map[EventStatus]bool{
		EventDraft:     {EventPublished: true, EventCanceled: true},
		EventPublished: {EventCanceled: true, EventFinished: true, EventDraft: true},
		EventCanceled:  {EventDraft: true},
		EventFinished:  {},
	}
	transitions := []Action{ActionPublish, ActionCancel, ActionFinish, ActionRevertToDraft}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		status := EventDraft
		for step := 0; step < 50; step++ {
			action := transitions[rng.Intn(len(transitions))]
			next, err := NextEventStatus(status, action)
			if err != nil {
				require.ErrorIs(t, err, apperror.ErrInvalidTransition)
				continue
			}
			require.Truef(t, legal[status][next], "illegal edge %s -> %s via %s", status, next, action)
			status = next
		}
		assert.True(t, status.Valid())
	}
}
