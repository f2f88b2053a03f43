package lifecycle

import (
	"fmt"

	"github.com/farellandr/rollcall/internal/apperror"
)

// RegistrationStatus is the state of a participant's registration.
type RegistrationStatus string

const (
	RegistrationPending        RegistrationStatus = "pending"
	RegistrationApproved       RegistrationStatus = "approved"
	RegistrationRejected       RegistrationStatus = "rejected"
	RegistrationWaitingPayment RegistrationStatus = "waiting_payment"
	RegistrationConfirmed      RegistrationStatus = "confirmed"
	RegistrationCanceled       RegistrationStatus = "canceled"
	RegistrationCheckedIn      RegistrationStatus = "checked_in"
)

var (
	// SeatHolding statuses count against an event's max attendees.
	SeatHolding = []RegistrationStatus{
		RegistrationPending,
		RegistrationApproved,
		RegistrationWaitingPayment,
		RegistrationConfirmed,
		RegistrationCheckedIn,
	}

	// Attending statuses make a participant visible on the event roster and
	// qualify for the shared-event friendship gate.
	Attending = []RegistrationStatus{
		RegistrationApproved,
		RegistrationConfirmed,
		RegistrationCheckedIn,
	}

	// CheckInEligible statuses may receive another check-in while the
	// registration has allowance left.
	CheckInEligible = []RegistrationStatus{
		RegistrationApproved,
		RegistrationConfirmed,
		RegistrationCheckedIn,
	}
)

// RegistrationStatuses lists every registration status.
var RegistrationStatuses = []RegistrationStatus{
	RegistrationPending,
	RegistrationApproved,
	RegistrationRejected,
	RegistrationWaitingPayment,
	RegistrationConfirmed,
	RegistrationCanceled,
	RegistrationCheckedIn,
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	return contains(RegistrationStatuses, s)
}

// Live reports whether the registration blocks a new one for the same pair.
func (s RegistrationStatus) Live() bool {
	return s != RegistrationCanceled
}

// CardEligible reports whether the participant may display a virtual card.
func (s RegistrationStatus) CardEligible() bool {
	return s == RegistrationApproved || s == RegistrationConfirmed
}

// CanCheckIn reports whether a check-in may be recorded in status s.
// checked_in stays eligible so multi-entry events (allowed_checkins > 1) can
// record later entries; the event's allowance is what stops a repeat scan.
func (s RegistrationStatus) CanCheckIn() bool {
	return contains(CheckInEligible, s)
}

// InitialRegistrationStatus returns the status of a fresh or reactivated
// registration.
func InitialRegistrationStatus(requiresApproval bool) RegistrationStatus {
	if requiresApproval {
		return RegistrationPending
	}
	return RegistrationApproved
}

// Decide validates an organizer decision moving a registration from current
// to next. It returns changed=false when the registration already holds next.
func Decide(current, next RegistrationStatus) (changed bool, err error) {
	if next != RegistrationApproved && next != RegistrationRejected {
		return false, apperror.WithMetadata(apperror.CodeInvalidInput,
			fmt.Sprintf("Registration status %q cannot be set by the organizer.", next),
			map[string]string{"status": string(next)})
	}
	switch current {
	case RegistrationCheckedIn:
		return false, apperror.WithMetadata(apperror.CodeAlreadyCheckedIn,
			"Participant already checked in.",
			map[string]string{"status": string(current)})
	case RegistrationCanceled:
		return false, apperror.WithMetadata(apperror.CodeInvalidTransition,
			"Registration was canceled by the participant.",
			map[string]string{"status": string(current), "action": string(next)})
	case next:
		return false, nil
	}
	return true, nil
}

func contains(set []RegistrationStatus, s RegistrationStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// CheckInMethod records how attendance was captured.
type CheckInMethod string

const (
	CheckInManual CheckInMethod = "manual"
	CheckInQR     CheckInMethod = "qr"
)

// Valid reports whether m is a known method.
func (m CheckInMethod) Valid() bool {
	return m == CheckInManual || m == CheckInQR
}
