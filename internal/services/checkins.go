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

// CheckInResult acknowledges a recorded check-in.
type CheckInResult struct {
	CheckInID       uuid.UUID               `json:"checkin_id"`
	RegistrationID  uuid.UUID               `json:"registration_id"`
	ParticipantID   uuid.UUID               `json:"participant_id"`
	Method          lifecycle.CheckInMethod `json:"method"`
	CheckinsCount   int                     `json:"checkins_count"`
	AllowedCheckins int                     `json:"allowed_checkins"`
	CheckedInAt     time.Time               `json:"checked_in_at"`
}

// CheckInService owns the check-in ledger and the per-registration counter.
type CheckInService struct {
	store  *store.Store
	log    *zap.Logger
	signer *passcode.Signer
	opts   options
}

func NewCheckInService(st *store.Store, log *zap.Logger, signer *passcode.Signer, opts ...Option) *CheckInService {
	return &CheckInService{
		store:  st,
		log:    log,
		signer: signer,
		opts:   buildOptions(opts),
	}
}

// CheckIn records one attendance for registrationID. The capacity check, the
// counter increment and the ledger append commit in one transaction; the
// increment is conditional on the counter still being below the allowance and
// the status still eligible, so concurrent callers cannot push it past the cap.
// Late check-ins on a finished event are accepted; canceled events refuse them.
func (s *CheckInService) CheckIn(ctx context.Context, organizerID, registrationID uuid.UUID, method lifecycle.CheckInMethod) (*CheckInResult, error) {
	if !method.Valid() {
		return nil, invalidInput(fmt.Sprintf("Unknown check-in method %q.", method), "method")
	}

	now := s.opts.clock()
	var result CheckInResult

	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		var registration models.Registration
		if err := loadRegistration(tx, registrationID, &registration); err != nil {
			return err
		}
		// Lock order is event then registration, as in Register. The shared
		// lock pins allowed_checkins until commit.
		var event models.Event
		if err := shareEvent(tx, registration.EventID, &event); err != nil {
			return err
		}
		if err := requireOrganizer(&event, organizerID, "You do not have permission to perform check-in for this event."); err != nil {
			return err
		}
		if event.Status == lifecycle.EventCanceled {
			return apperror.WithMetadata(apperror.CodeNotEligible, "Event is canceled.",
				map[string]string{"event_status": string(event.Status)})
		}
		if err := lockRegistration(tx, registrationID, &registration); err != nil {
			return err
		}
		if !registration.Status.CanCheckIn() {
			return notApproved(registration.Status)
		}

		allowance := event.CheckinAllowance()
		if registration.CheckinsCount >= allowance {
			return capacityExceeded(registration.CheckinsCount, allowance)
		}

		if s.opts.beforeCheckInWrite != nil {
			if err := s.opts.beforeCheckInWrite(tx, registration.ID); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND checkins_count < ? AND status IN ?", registration.ID, allowance, lifecycle.CheckInEligible).
			Updates(map[string]interface{}{
				"checkins_count": gorm.Expr("checkins_count + ?", 1),
				"status":         lifecycle.RegistrationCheckedIn,
			})
		if res.Error != nil {
			return fmt.Errorf("increment check-ins: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return checkInRefused(tx, registration.ID, allowance)
		}

		var count int
		err := tx.Model(&models.Registration{}).
			Where("id = ?", registration.ID).
			Select("checkins_count").
			Scan(&count).Error
		if err != nil {
			return fmt.Errorf("read check-ins: %w", err)
		}

		record := models.CheckIn{
			RegistrationID: registration.ID,
			Method:         method,
			CheckedBy:      organizerID,
			CheckedInAt:    now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("append check-in: %w", err)
		}

		result = CheckInResult{
			CheckInID:       record.ID,
			RegistrationID:  registration.ID,
			ParticipantID:   registration.UserID,
			Method:          method,
			CheckinsCount:   count,
			AllowedCheckins: allowance,
			CheckedInAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("check-in recorded",
		zap.String("registration_id", result.RegistrationID.String()),
		zap.String("method", string(method)),
		zap.Int("checkins_count", result.CheckinsCount),
		zap.Int("allowed_checkins", result.AllowedCheckins))
	return &result, nil
}

// CheckInByQR verifies a scanned virtual card and checks its holder in.
func (s *CheckInService) CheckInByQR(ctx context.Context, organizerID uuid.UUID, qrData string) (*CheckInResult, error) {
	registrationID, err := s.signer.Decode(qrData)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidInput, "Invalid QR code.", err)
	}
	return s.CheckIn(ctx, organizerID, registrationID, lifecycle.CheckInQR)
}

// ListCheckIns returns the ledger of one registration, oldest first.
func (s *CheckInService) ListCheckIns(ctx context.Context, organizerID, registrationID uuid.UUID) ([]models.CheckIn, error) {
	db := s.store.DB(ctx)

	var registration models.Registration
	if err := db.Preload("Event").Where("id = ?", registrationID).First(&registration).Error; err != nil {
		if store.IsNotFound(err) {
			return nil, apperror.New(apperror.CodeNotFound, "Registration not found.")
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if registration.Event == nil {
		return nil, apperror.New(apperror.CodeNotFound, "Event not found.")
	}
	if err := requireOrganizer(registration.Event, organizerID, "You do not have permission to view check-ins for this event."); err != nil {
		return nil, err
	}

	checkIns := []models.CheckIn{}
	err := db.Where("registration_id = ?", registrationID).
		Order("checked_in_at ASC").
		Find(&checkIns).Error
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return checkIns, nil
}

// checkInRefused explains a conditional increment that matched no row: the
// registration left the eligible statuses or ran out of allowance.
func checkInRefused(tx *gorm.DB, registrationID uuid.UUID, allowance int) error {
	var current models.Registration
	if err := loadRegistration(tx, registrationID, &current); err != nil {
		return err
	}
	if !current.Status.CanCheckIn() {
		return notApproved(current.Status)
	}
	return capacityExceeded(current.CheckinsCount, allowance)
}

func notApproved(status lifecycle.RegistrationStatus) error {
	return apperror.WithMetadata(apperror.CodeNotEligible,
		fmt.Sprintf("Participant not approved (Status: %s).", status),
		map[string]string{"status": string(status)})
}

func capacityExceeded(count, allowance int) error {
	return apperror.WithMetadata(apperror.CodeCapacityExceeded, "Participant already checked in.",
		map[string]string{
			"checkins_count":   fmt.Sprint(count),
			"allowed_checkins": fmt.Sprint(allowance),
		})
}
