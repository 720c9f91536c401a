package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
)

const (
	msgDuplicateSlot = "you already have a booking for that slot"
	msgOverlap       = "you already have another appointment that overlaps with this time"
)

// ConflictChecker decides whether a patient may take a candidate slot given
// the patient's other active appointments on the same date.
type ConflictChecker struct{}

// Check rejects a duplicate booking of the same slot before looking for
// overlapping windows. The appointment with id exclude is ignored so that a
// reschedule is not blocked by itself.
func (ConflictChecker) Check(existing []models.Appointment, candidate models.Slot, exclude uint) error {
	for _, a := range existing {
		if a.ID == exclude || !a.IsActive() {
			continue
		}
		if a.SlotID == candidate.ID {
			return apperrors.NewConflictError(msgDuplicateSlot)
		}
	}
	for _, a := range existing {
		if a.ID == exclude || !a.IsActive() {
			continue
		}
		if a.Slot.Overlaps(candidate) {
			return apperrors.NewConflictError(msgOverlap)
		}
	}
	return nil
}
