package repositories

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/cache"
	"HospitalBooking/database"
	"HospitalBooking/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	DoctorCacheExpiry = 7 * 24 * time.Hour
	doctorsCacheKey   = "doctors_cache"
)

type DoctorRepository interface {
	Create(ctx context.Context, doctor *models.Doctor) error
	GetByID(ctx context.Context, id uint) (*models.Doctor, error)
	GetAll(ctx context.Context) ([]models.Doctor, error)
	Update(ctx context.Context, doctor *models.Doctor) error
	Delete(ctx context.Context, id uint) error
}

type doctorRepository struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
	log    zerolog.Logger
}

func NewDoctorRepository(db *gorm.DB, cache *cache.Cache, locker *database.Locker, log zerolog.Logger) DoctorRepository {
	return &doctorRepository{db: db, cache: cache, locker: locker, log: log}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	lockKey := fmt.Sprintf("doctor_lock:%s_%s", strings.ToLower(doctor.Name), strings.ToLower(doctor.Specialization))
	return withLock(ctx, r.locker, r.log, lockKey, func() error {
		// Check if a record with the same unique fields already exists
		var existing models.Doctor
		err := r.db.WithContext(ctx).
			Where("LOWER(name) = LOWER(?) AND LOWER(specialization) = LOWER(?)", doctor.Name, doctor.Specialization).
			First(&existing).Error
		if err == nil {
			return apperrors.NewConflictError("doctor with the same name and specialization already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for existing doctor: %w", err)
		}

		if err := r.db.WithContext(ctx).Create(doctor).Error; err != nil {
			return fmt.Errorf("failed to create doctor: %w", err)
		}
		return r.invalidate(ctx, doctor.ID)
	})
}

func (r *doctorRepository) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getDoctorCacheKey(id)
	var doctor models.Doctor
	if found, err := r.cache.GetJSON(ctx, cacheKey, &doctor); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to get doctor from cache")
	} else if found {
		return &doctor, nil
	}

	err := r.db.WithContext(ctx).
		Select("id, name, specialization, email, phone, created_at").
		First(&doctor, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("doctor")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if err := r.cache.SetJSON(ctx, cacheKey, doctor, DoctorCacheExpiry); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to set doctor in cache")
	}
	return &doctor, nil
}

func (r *doctorRepository) GetAll(ctx context.Context) ([]models.Doctor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doctors []models.Doctor
	if found, err := r.cache.GetJSON(ctx, doctorsCacheKey, &doctors); err != nil {
		r.log.Warn().Err(err).Msg("failed to get doctors from cache")
	} else if found {
		return doctors, nil
	}

	err := r.db.WithContext(ctx).
		Select("id, name, specialization, email, phone, created_at").
		Order("name ASC").
		Find(&doctors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all doctors: %w", err)
	}

	if err := r.cache.SetJSON(ctx, doctorsCacheKey, doctors, DoctorCacheExpiry); err != nil {
		r.log.Warn().Err(err).Msg("failed to set doctors in cache")
	}
	return doctors, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	lockKey := fmt.Sprintf("doctor_lock:%d", doctor.ID)
	return withLock(ctx, r.locker, r.log, lockKey, func() error {
		res := r.db.WithContext(ctx).Model(&models.Doctor{}).Where("id = ?", doctor.ID).Updates(map[string]interface{}{
			"name":           doctor.Name,
			"specialization": doctor.Specialization,
			"email":          doctor.Email,
			"phone":          doctor.Phone,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update doctor: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFoundError("doctor")
		}
		return r.invalidate(ctx, doctor.ID)
	})
}

// Delete removes the doctor together with its slots and appointments in one
// transaction.
func (r *doctorRepository) Delete(ctx context.Context, id uint) error {
	lockKey := fmt.Sprintf("doctor_lock:%d", id)
	return withLock(ctx, r.locker, r.log, lockKey, func() error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("doctor_id = ?", id).Delete(&models.Appointment{}).Error; err != nil {
				return fmt.Errorf("failed to delete doctor appointments: %w", err)
			}
			if err := tx.Where("doctor_id = ?", id).Delete(&models.Slot{}).Error; err != nil {
				return fmt.Errorf("failed to delete doctor slots: %w", err)
			}
			res := tx.Delete(&models.Doctor{}, "id = ?", id)
			if res.Error != nil {
				return fmt.Errorf("failed to delete doctor: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperrors.NewNotFoundError("doctor")
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := r.cache.Delete(ctx, slotsCacheKey(id)); err != nil {
			return fmt.Errorf("failed to delete slots cache: %w", err)
		}
		return r.invalidate(ctx, id)
	})
}

func (r *doctorRepository) invalidate(ctx context.Context, id uint) error {
	if err := r.cache.Delete(ctx, r.getDoctorCacheKey(id), doctorsCacheKey); err != nil {
		return fmt.Errorf("failed to delete doctor cache: %w", err)
	}
	return nil
}

func (r *doctorRepository) getDoctorCacheKey(id uint) string {
	return fmt.Sprintf("doctor_cache:%d", id)
}
