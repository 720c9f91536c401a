package repositories

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/database"
	"HospitalBooking/models"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerTx is the view of the appointment ledger inside one database
// transaction. Every booking workflow step goes through it so that nothing
// is half-applied.
type LedgerTx interface {
	// GetAppointment loads and row-locks an appointment.
	GetAppointment(ctx context.Context, id uint) (*models.Appointment, error)
	// GetAppointmentDetails row-locks an appointment and loads its User,
	// Doctor and Slot.
	GetAppointmentDetails(ctx context.Context, id uint) (*models.Appointment, error)
	GetSlot(ctx context.Context, id uint) (*models.Slot, error)
	// ActiveForPatientOnDate returns the patient's non-canceled appointments
	// whose slot falls on date, with Slot preloaded.
	ActiveForPatientOnDate(ctx context.Context, ref models.PatientRef, date string) ([]models.Appointment, error)
	// NextTurn issues the next turn number on the slot from its persisted
	// counter, locking the slot row until the transaction ends.
	NextTurn(ctx context.Context, slotID uint) (int, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, appointment *models.Appointment) error
	Save(ctx context.Context, appointment *models.Appointment) error
	Delete(ctx context.Context, id uint) error
}

type AppointmentRepository interface {
	Transaction(ctx context.Context, fn func(tx LedgerTx) error) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Appointment, error)
	GetAll(ctx context.Context) ([]models.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Transaction(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appointment models.Appointment
	err := r.preloaded(ctx).First(&appointment, "appointment.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appointments []models.Appointment
	err := r.preloaded(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) GetAll(ctx context.Context) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appointments []models.Appointment
	err := r.preloaded(ctx).Order("created_at DESC").Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, email, phone, role_id")
		}).
		Preload("Doctor").
		Preload("Slot")
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (t *ledgerTx) GetAppointmentDetails(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, email, phone, role_id")
		}).
		Preload("Doctor").
		Preload("Slot").
		First(&appointment, "appointment.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (t *ledgerTx) GetSlot(ctx context.Context, id uint) (*models.Slot, error) {
	var slot models.Slot
	if err := t.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("slot")
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (t *ledgerTx) ActiveForPatientOnDate(ctx context.Context, ref models.PatientRef, date string) ([]models.Appointment, error) {
	query := t.db.WithContext(ctx).
		Preload("Slot").
		Joins("JOIN slot ON slot.id = appointment.slot_id").
		Where("slot.date = ? AND appointment.status <> ?", date, models.StatusCanceled)
	if ref.UserID != nil {
		query = query.Where("appointment.user_id = ?", *ref.UserID)
	} else {
		query = query.Where("appointment.user_id IS NULL AND appointment.patient_name = ?", ref.Name)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to load patient appointments: %w", err)
	}
	return appointments, nil
}

func (t *ledgerTx) NextTurn(ctx context.Context, slotID uint) (int, error) {
	var slot models.Slot
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id, last_turn").
		First(&slot, "id = ?", slotID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NewNotFoundError("slot")
		}
		return 0, fmt.Errorf("failed to lock slot: %w", err)
	}

	// Rows written before the counter existed still hold their turns.
	var highest int
	err = t.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("COALESCE(MAX(turn_number), 0)").
		Where("slot_id = ?", slotID).
		Scan(&highest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute turn number: %w", err)
	}

	turn := nextTurn(slot.LastTurn, highest)
	err = t.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ?", slotID).
		Update("last_turn", turn).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance turn counter: %w", err)
	}
	return turn, nil
}

func (t *ledgerTx) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := t.db.WithContext(ctx).
		Select("id, username, email, phone, role_id").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (t *ledgerTx) Insert(ctx context.Context, appointment *models.Appointment) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(appointment).Error; err != nil {
		return storageError("failed to create appointment", err)
	}
	return nil
}

func (t *ledgerTx) Save(ctx context.Context, appointment *models.Appointment) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Save(appointment).Error; err != nil {
		return storageError("failed to update appointment", err)
	}
	return nil
}

func (t *ledgerTx) Delete(ctx context.Context, id uint) error {
	res := t.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("appointment")
	}
	return nil
}

// nextTurn follows the last issued turn and any turn still on the slot.
func nextTurn(lastIssued, highest int) int {
	if highest > lastIssued {
		return highest + 1
	}
	return lastIssued + 1
}

func storageError(msg string, err error) error {
	if database.IsUniqueViolation(err) {
		return apperrors.NewStorageConflictError("the slot was just taken, please try another slot", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
