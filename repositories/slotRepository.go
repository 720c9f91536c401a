package repositories

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/cache"
	"HospitalBooking/database"
	"HospitalBooking/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const SlotCacheExpiry = 24 * time.Hour

// SlotRepository is the slot store. Booked state is always derived from the
// appointment table and never cached.
type SlotRepository interface {
	Create(ctx context.Context, slot *models.Slot) error
	GetByID(ctx context.Context, id uint) (*models.Slot, error)
	ListByDoctor(ctx context.Context, doctorID uint) ([]models.Slot, error)
	BookedSlotIDs(ctx context.Context, slotIDs []uint) (map[uint]bool, error)
	Delete(ctx context.Context, id uint) error
}

type slotRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   zerolog.Logger
}

func NewSlotRepository(db *gorm.DB, cache *cache.Cache, log zerolog.Logger) SlotRepository {
	return &slotRepository{db: db, cache: cache, log: log}
}

func (r *slotRepository) Create(ctx context.Context, slot *models.Slot) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Doctor{}).Where("id = ?", slot.DoctorID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check doctor: %w", err)
	}
	if count == 0 {
		return apperrors.NewNotFoundError("doctor")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(slot).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewStorageConflictError("doctor already has a slot starting at that date and time", err)
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if err := r.cache.Delete(ctx, slotsCacheKey(slot.DoctorID)); err != nil {
		return fmt.Errorf("failed to delete slots cache: %w", err)
	}
	return nil
}

func (r *slotRepository) GetByID(ctx context.Context, id uint) (*models.Slot, error) {
	var slot models.Slot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("slot")
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) ListByDoctor(ctx context.Context, doctorID uint) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := slotsCacheKey(doctorID)
	var slots []models.Slot
	if found, err := r.cache.GetJSON(ctx, cacheKey, &slots); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to get slots from cache")
	} else if found {
		return slots, nil
	}

	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date ASC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	if err := r.cache.SetJSON(ctx, cacheKey, slots, SlotCacheExpiry); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to set slots in cache")
	}
	return slots, nil
}

func (r *slotRepository) BookedSlotIDs(ctx context.Context, slotIDs []uint) (map[uint]bool, error) {
	booked := make(map[uint]bool, len(slotIDs))
	if len(slotIDs) == 0 {
		return booked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Distinct("slot_id").
		Where("slot_id IN ? AND status <> ?", slotIDs, models.StatusCanceled).
		Pluck("slot_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to derive booked slots: %w", err)
	}
	for _, id := range ids {
		booked[id] = true
	}
	return booked, nil
}

// Delete removes the slot and the appointments referencing it.
func (r *slotRepository) Delete(ctx context.Context, id uint) error {
	var slot models.Slot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&slot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("slot")
			}
			return fmt.Errorf("failed to get slot: %w", err)
		}
		if err := tx.Where("slot_id = ?", id).Delete(&models.Appointment{}).Error; err != nil {
			return fmt.Errorf("failed to delete slot appointments: %w", err)
		}
		if err := tx.Delete(&models.Slot{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, slotsCacheKey(slot.DoctorID)); err != nil {
		return fmt.Errorf("failed to delete slots cache: %w", err)
	}
	return nil
}

func slotsCacheKey(doctorID uint) string {
	return fmt.Sprintf("slots_cache:%d", doctorID)
}
