package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/notifications"
	"HospitalBooking/repositories"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type BookingConfig struct {
	// CancelWindow is how far ahead of the slot start a patient may still cancel.
	CancelWindow            time.Duration
	RescheduleConflictCheck bool
	Location                *time.Location
}

// BookRequest selects the slot to book. PatientName is only read for admin
// bookings made on behalf of a patient.
type BookRequest struct {
	SlotID      uint   `json:"slot_id"`
	PatientName string `json:"patient_name"`
}

// BookingService runs the appointment workflow: book, cancel, reschedule and
// delete. Every transition runs in one ledger transaction and is followed by a
// best effort notification.
type BookingService struct {
	appointments repositories.AppointmentRepository
	users        repositories.UserRepository
	notifier     notifications.Notifier
	checker      ConflictChecker
	cfg          BookingConfig
	log          zerolog.Logger
	now          func() time.Time
}

func NewBookingService(appointments repositories.AppointmentRepository, users repositories.UserRepository, notifier notifications.Notifier, cfg BookingConfig, log zerolog.Logger) *BookingService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &BookingService{
		appointments: appointments,
		users:        users,
		notifier:     notifier,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

func (s *BookingService) Book(ctx context.Context, actor models.Actor, req BookRequest) (*models.Appointment, error) {
	appointment := models.Appointment{SlotID: req.SlotID, Status: models.StatusConfirmed}

	err := s.appointments.Transaction(ctx, func(tx repositories.LedgerTx) error {
		ref, err := s.resolvePatient(ctx, tx, actor, req.PatientName)
		if err != nil {
			return err
		}
		appointment.UserID = ref.UserID
		appointment.PatientName = ref.Name

		slot, err := tx.GetSlot(ctx, req.SlotID)
		if err != nil {
			return err
		}
		appointment.DoctorID = slot.DoctorID

		if err := s.checkConflicts(ctx, tx, ref, *slot, 0); err != nil {
			return err
		}

		turn, err := tx.NextTurn(ctx, slot.ID)
		if err != nil {
			return err
		}
		appointment.TurnNumber = turn
		return tx.Insert(ctx, &appointment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("appointment_id", appointment.ID).
		Uint("slot_id", appointment.SlotID).
		Int("turn", appointment.TurnNumber).
		Str("actor", actor.Username).
		Msg("appointment booked")
	return s.afterCommit(ctx, appointment, notifications.ActionBooked, actor), nil
}

func (s *BookingService) Cancel(ctx context.Context, actor models.Actor, id uint) (*models.Appointment, error) {
	var committed models.Appointment
	err := s.appointments.Transaction(ctx, func(tx repositories.LedgerTx) error {
		appointment, err := s.loadForChange(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() {
			slot, err := tx.GetSlot(ctx, appointment.SlotID)
			if err != nil {
				return err
			}
			if err := s.checkCancelWindow(*slot); err != nil {
				return err
			}
		}

		appointment.Status = models.StatusCanceled
		if err := s.markAdminChange(ctx, tx, actor, appointment); err != nil {
			return err
		}
		if err := tx.Save(ctx, appointment); err != nil {
			return err
		}
		committed = *appointment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("appointment_id", id).Str("actor", actor.Username).Msg("appointment canceled")
	return s.afterCommit(ctx, committed, notifications.ActionCanceled, actor), nil
}

func (s *BookingService) Reschedule(ctx context.Context, actor models.Actor, id, newSlotID uint) (*models.Appointment, error) {
	var committed models.Appointment
	err := s.appointments.Transaction(ctx, func(tx repositories.LedgerTx) error {
		appointment, err := s.loadForChange(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		slot, err := tx.GetSlot(ctx, newSlotID)
		if err != nil {
			return err
		}
		if slot.DoctorID != appointment.DoctorID {
			return apperrors.NewValidationError("the new slot must belong to the same doctor")
		}
		if slot.ID == appointment.SlotID {
			return apperrors.NewValidationError("the appointment is already in that slot")
		}

		if s.cfg.RescheduleConflictCheck {
			ref := models.PatientRef{UserID: appointment.UserID, Name: appointment.PatientName}
			if err := s.checkConflicts(ctx, tx, ref, *slot, appointment.ID); err != nil {
				return err
			}
		}

		turn, err := tx.NextTurn(ctx, slot.ID)
		if err != nil {
			return err
		}
		appointment.SlotID = slot.ID
		appointment.TurnNumber = turn
		appointment.Status = models.StatusRescheduled
		if err := s.markAdminChange(ctx, tx, actor, appointment); err != nil {
			return err
		}
		if err := tx.Save(ctx, appointment); err != nil {
			return err
		}
		committed = *appointment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("appointment_id", id).
		Uint("slot_id", newSlotID).
		Str("actor", actor.Username).
		Msg("appointment rescheduled")
	return s.afterCommit(ctx, committed, notifications.ActionRescheduled, actor), nil
}

// Delete removes the appointment for good. Only admins may delete.
func (s *BookingService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	if !actor.IsAdmin() {
		return apperrors.NewPermissionDeniedError("only administrators can delete appointments")
	}

	var deleted models.Appointment
	err := s.appointments.Transaction(ctx, func(tx repositories.LedgerTx) error {
		appointment, err := tx.GetAppointmentDetails(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		deleted = *appointment
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("appointment_id", id).Str("actor", actor.Username).Msg("appointment deleted")
	s.notify(ctx, deleted, notifications.ActionDeleted, actor)
	return nil
}

func (s *BookingService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !appointment.OwnedBy(actor.UserID) {
		return nil, apperrors.NewPermissionDeniedError("you can only view your own appointments")
	}
	return appointment, nil
}

func (s *BookingService) ListMine(ctx context.Context, actor models.Actor) ([]models.Appointment, error) {
	return s.appointments.ListByUser(ctx, actor.UserID)
}

func (s *BookingService) ListAll(ctx context.Context, actor models.Actor) ([]models.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDeniedError("only administrators can list every appointment")
	}
	return s.appointments.GetAll(ctx)
}

// resolvePatient decides who a new booking is for. Patients always book for
// themselves; admins name the patient, who is linked when an account with that
// username exists.
func (s *BookingService) resolvePatient(ctx context.Context, tx repositories.LedgerTx, actor models.Actor, patientName string) (models.PatientRef, error) {
	if !actor.IsAdmin() {
		userID := actor.UserID
		return models.PatientRef{UserID: &userID, Name: actor.Username}, nil
	}

	name := strings.TrimSpace(patientName)
	if name == "" {
		return models.PatientRef{}, apperrors.NewValidationError("patient_name is required when booking on behalf of a patient")
	}
	user, err := tx.FindUserByUsername(ctx, name)
	if err != nil {
		return models.PatientRef{}, err
	}
	if user == nil {
		return models.PatientRef{Name: name}, nil
	}
	return models.PatientRef{UserID: &user.ID, Name: name}, nil
}

func (s *BookingService) checkConflicts(ctx context.Context, tx repositories.LedgerTx, ref models.PatientRef, slot models.Slot, exclude uint) error {
	existing, err := tx.ActiveForPatientOnDate(ctx, ref, slot.Date)
	if err != nil {
		return err
	}
	return s.checker.Check(existing, slot, exclude)
}

// loadForChange locks the appointment and checks that actor may change it.
func (s *BookingService) loadForChange(ctx context.Context, tx repositories.LedgerTx, actor models.Actor, id uint) (*models.Appointment, error) {
	appointment, err := tx.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !appointment.OwnedBy(actor.UserID) {
		return nil, apperrors.NewPermissionDeniedError("you can only change your own appointments")
	}
	if appointment.Status == models.StatusCanceled {
		return nil, apperrors.NewValidationError("the appointment is already canceled")
	}
	return appointment, nil
}

// checkCancelWindow lets a patient cancel only while the slot start is at
// least the cancel window away. A slot whose start cannot be parsed does not
// block the cancellation.
func (s *BookingService) checkCancelWindow(slot models.Slot) error {
	start, err := slot.StartsAt(s.cfg.Location)
	if err != nil {
		s.log.Warn().Err(err).Uint("slot_id", slot.ID).Msg("unparsable slot start, allowing cancellation")
		return nil
	}
	if start.Sub(s.now()) < s.cfg.CancelWindow {
		return apperrors.NewValidationError(fmt.Sprintf(
			"appointments can only be canceled at least %g hours before they start", s.cfg.CancelWindow.Hours()))
	}
	return nil
}

// markAdminChange flags admin-driven changes and links an unresolved booking
// to the account whose username matches the patient name.
func (s *BookingService) markAdminChange(ctx context.Context, tx repositories.LedgerTx, actor models.Actor, appointment *models.Appointment) error {
	if !actor.IsAdmin() {
		return nil
	}
	appointment.UpdatedByAdmin = true
	if appointment.UserID != nil {
		return nil
	}
	user, err := tx.FindUserByUsername(ctx, appointment.PatientName)
	if err != nil {
		return err
	}
	if user != nil {
		appointment.UserID = &user.ID
	}
	return nil
}

// afterCommit reloads the appointment with its relations and notifies. The
// transition is already committed, so when the reload fails the committed
// row is returned as written and no notification goes out.
func (s *BookingService) afterCommit(ctx context.Context, committed models.Appointment, action notifications.Action, actor models.Actor) *models.Appointment {
	appointment, err := s.appointments.GetByID(ctx, committed.ID)
	if err != nil {
		s.log.Error().Err(err).Uint("appointment_id", committed.ID).Msg("failed to reload appointment after commit")
		return &committed
	}
	s.notify(ctx, *appointment, action, actor)
	return appointment
}

func (s *BookingService) notify(ctx context.Context, appointment models.Appointment, action notifications.Action, actor models.Actor) {
	if s.notifier == nil {
		return
	}
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load admins for notification")
	}
	n := notifications.NewAppointmentNotification(appointment, action, actor, admins)
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Uint("appointment_id", appointment.ID).Str("action", string(action)).Msg("notification failed")
	}
}
