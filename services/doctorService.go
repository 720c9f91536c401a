package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/repositories"
	"HospitalBooking/utils"
	"context"
	"strings"
)

type DoctorService struct {
	repository repositories.DoctorRepository
}

func NewDoctorService(repository repositories.DoctorRepository) *DoctorService {
	return &DoctorService{repository: repository}
}

func (s *DoctorService) Create(ctx context.Context, doctor *models.Doctor) error {
	normalizeDoctor(doctor)
	if err := utils.ValidateDoctor(*doctor); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return s.repository.Create(ctx, doctor)
}

func (s *DoctorService) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *DoctorService) GetAll(ctx context.Context) ([]models.Doctor, error) {
	return s.repository.GetAll(ctx)
}

func (s *DoctorService) Update(ctx context.Context, doctor *models.Doctor) error {
	normalizeDoctor(doctor)
	if err := utils.ValidateDoctor(*doctor); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return s.repository.Update(ctx, doctor)
}

// Delete also removes the doctor's slots and appointments.
func (s *DoctorService) Delete(ctx context.Context, id uint) error {
	return s.repository.Delete(ctx, id)
}

func normalizeDoctor(doctor *models.Doctor) {
	doctor.Name = strings.TrimSpace(doctor.Name)
	doctor.Specialization = strings.TrimSpace(doctor.Specialization)
	doctor.Email = strings.TrimSpace(doctor.Email)
	doctor.Phone = strings.TrimSpace(doctor.Phone)
}
