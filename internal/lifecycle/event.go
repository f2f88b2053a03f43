package lifecycle

import (
	"fmt"

	"github.com/farellandr/rollcall/internal/apperror"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCanceled  EventStatus = "canceled"
	EventFinished  EventStatus = "finished"
)

// EventStatuses lists every known event status.
var EventStatuses = []EventStatus{EventDraft, EventPublished, EventCanceled, EventFinished}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCanceled, EventFinished:
		return true
	}
	return false
}

// Action is an operation an organizer applies to an event.
type Action string

const (
	ActionPublish       Action = "publish"
	ActionCancel        Action = "cancel"
	ActionFinish        Action = "finish"
	ActionRevertToDraft Action = "revert_to_draft"
	ActionUpdate        Action = "update"
)

// Actions lists every event action, including update.
var Actions = []Action{ActionPublish, ActionCancel, ActionFinish, ActionRevertToDraft, ActionUpdate}

// edge is one cell of the transition table. A zero target with allowed set
// means the action keeps the current status (update).
type edge struct {
	allowed bool
	target  EventStatus
	reason  string
}

var eventTransitions = map[EventStatus]map[Action]edge{
	EventDraft: {
		ActionPublish:       {allowed: true, target: EventPublished},
		ActionCancel:        {allowed: true, target: EventCanceled},
		ActionFinish:        {reason: "Cannot finish a draft event."},
		ActionRevertToDraft: {reason: "Event is already a draft."},
		ActionUpdate:        {allowed: true},
	},
	EventPublished: {
		ActionPublish:       {reason: "Event is already published."},
		ActionCancel:        {allowed: true, target: EventCanceled},
		ActionFinish:        {allowed: true, target: EventFinished},
		ActionRevertToDraft: {allowed: true, target: EventDraft},
		ActionUpdate:        {allowed: true},
	},
	EventCanceled: {
		ActionPublish:       {reason: "Event is canceled."},
		ActionCancel:        {reason: "Event is already canceled."},
		ActionFinish:        {reason: "Event is canceled."},
		ActionRevertToDraft: {allowed: true, target: EventDraft},
		ActionUpdate:        {reason: "Cannot update a canceled event."},
	},
	EventFinished: {
		ActionPublish:       {reason: "Event is already finished."},
		ActionCancel:        {reason: "Event is finished."},
		ActionFinish:        {reason: "Event is already finished."},
		ActionRevertToDraft: {reason: "Cannot revert a finished event to draft."},
		ActionUpdate:        {reason: "Cannot update a finished event."},
	},
}

func lookup(from EventStatus, action Action) (edge, error) {
	row, ok := eventTransitions[from]
	if !ok {
		return edge{}, invalidTransition(from, action, fmt.Sprintf("Unknown event status %q.", from))
	}
	cell, ok := row[action]
	if !ok {
		return edge{}, invalidTransition(from, action, fmt.Sprintf("Unknown event action %q.", action))
	}
	if !cell.allowed {
		return edge{}, invalidTransition(from, action, cell.reason)
	}
	return cell, nil
}

// NextEventStatus returns the status reached by applying action to an event in
// status from. Update is not a status change; use CanUpdateEvent for it.
func NextEventStatus(from EventStatus, action Action) (EventStatus, error) {
	if action == ActionUpdate {
		return "", invalidTransition(from, action, "Update does not change event status.")
	}
	cell, err := lookup(from, action)
	if err != nil {
		return "", err
	}
	return cell.target, nil
}

// CanUpdateEvent reports whether event fields may be edited in status s.
func CanUpdateEvent(s EventStatus) error {
	_, err := lookup(s, ActionUpdate)
	return err
}

// AcceptsRegistrationDecisions reports whether organizers may still approve or
// reject registrations of an event in status s.
func (s EventStatus) AcceptsRegistrationDecisions() bool {
	return s == EventDraft || s == EventPublished
}

// Terminal reports whether s is finished or canceled. Terminal events take no
// new registrations.
func (s EventStatus) Terminal() bool {
	return s == EventFinished || s == EventCanceled
}

func invalidTransition(from EventStatus, action Action, reason string) *apperror.Error {
	return apperror.WithMetadata(apperror.CodeInvalidTransition, reason, map[string]string{
		"action": string(action),
		"status": string(from),
	})
}
