package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/repositories"
	"HospitalBooking/utils"
	"context"
	"strings"
)

type SlotService struct {
	slots   repositories.SlotRepository
	doctors repositories.DoctorRepository
}

func NewSlotService(slots repositories.SlotRepository, doctors repositories.DoctorRepository) *SlotService {
	return &SlotService{slots: slots, doctors: doctors}
}

func (s *SlotService) Create(ctx context.Context, slot *models.Slot) error {
	slot.Date = strings.TrimSpace(slot.Date)
	slot.StartTime = strings.TrimSpace(slot.StartTime)
	slot.EndTime = strings.TrimSpace(slot.EndTime)
	if err := utils.ValidateSlot(*slot); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return s.slots.Create(ctx, slot)
}

func (s *SlotService) GetByID(ctx context.Context, id uint) (*models.Slot, error) {
	return s.slots.GetByID(ctx, id)
}

// Delete also removes the appointments booked into the slot.
func (s *SlotService) Delete(ctx context.Context, id uint) error {
	return s.slots.Delete(ctx, id)
}

// ListByDoctor returns the doctor's slots with their derived booked state.
func (s *SlotService) ListByDoctor(ctx context.Context, doctorID uint) ([]models.SlotView, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	booked, err := s.slots.BookedSlotIDs(ctx, slotIDs(slots))
	if err != nil {
		return nil, err
	}
	return slotViews(slots, booked), nil
}

// Overview lists every doctor with its slots and booked flags.
func (s *SlotService) Overview(ctx context.Context) ([]models.DoctorSlots, error) {
	doctors, err := s.doctors.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	perDoctor := make([][]models.Slot, len(doctors))
	var all []models.Slot
	for i, d := range doctors {
		slots, err := s.slots.ListByDoctor(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		perDoctor[i] = slots
		all = append(all, slots...)
	}

	booked, err := s.slots.BookedSlotIDs(ctx, slotIDs(all))
	if err != nil {
		return nil, err
	}

	overview := make([]models.DoctorSlots, 0, len(doctors))
	for i, d := range doctors {
		overview = append(overview, models.DoctorSlots{Doctor: d, Slots: slotViews(perDoctor[i], booked)})
	}
	return overview, nil
}

func slotIDs(slots []models.Slot) []uint {
	ids := make([]uint, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}
	return ids
}

func slotViews(slots []models.Slot, booked map[uint]bool) []models.SlotView {
	views := make([]models.SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, models.SlotView{Slot: slot, Booked: booked[slot.ID]})
	}
	return views
}
