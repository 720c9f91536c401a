package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"context"
	"testing"
)

func newSlotFixture(t *testing.T) (*SlotService, *bookingFixture) {
	t.Helper()
	f := newBookingFixture(t)
	return NewSlotService(&memorySlots{ledger: f.ledger}, &memoryDoctors{ledger: f.ledger}), f
}

func TestSlotCreateValidates(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	err := svc.Create(ctx, &models.Slot{DoctorID: 1, Date: "2025-02-01", StartTime: "11:00", EndTime: "10:00"})
	assertKind(t, err, apperrors.KindValidation)

	err = svc.Create(ctx, &models.Slot{DoctorID: 99, Date: "2025-02-01", StartTime: "10:00", EndTime: "10:30"})
	assertKind(t, err, apperrors.KindNotFound)

	slot := &models.Slot{DoctorID: 1, Date: " 2025-02-01 ", StartTime: "10:00", EndTime: "10:30"}
	if err := svc.Create(ctx, slot); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if slot.ID == 0 || slot.Date != "2025-02-01" {
		t.Errorf("unexpected slot %+v", slot)
	}

	err = svc.Create(ctx, &models.Slot{DoctorID: 1, Date: "2025-02-01", StartTime: "10:00", EndTime: "10:45"})
	assertKind(t, err, apperrors.KindStorageConflict)
}

func TestSlotBookedIsDerived(t *testing.T) {
	svc, f := newSlotFixture(t)
	ctx := context.Background()

	a := f.book(t, patient1, 10)

	views, err := svc.ListByDoctor(ctx, 1)
	if err != nil {
		t.Fatalf("ListByDoctor: %v", err)
	}
	booked := map[uint]bool{}
	for _, v := range views {
		booked[v.ID] = v.Booked
	}
	if !booked[10] || booked[1] {
		t.Errorf("unexpected booked flags %v", booked)
	}

	if _, err := f.svc.Cancel(ctx, admin, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	views, _ = svc.ListByDoctor(ctx, 1)
	for _, v := range views {
		if v.Booked {
			t.Errorf("slot %d still booked after cancel", v.ID)
		}
	}

	_, err = svc.ListByDoctor(ctx, 99)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestSlotOverview(t *testing.T) {
	svc, f := newSlotFixture(t)
	f.book(t, patient1, 11)

	overview, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(overview) != 2 {
		t.Fatalf("expected 2 doctors, got %d", len(overview))
	}
	// Ordered by name: House then Wilson.
	if overview[1].Doctor.Name != "Wilson" || len(overview[1].Slots) != 1 || !overview[1].Slots[0].Booked {
		t.Errorf("unexpected Wilson entry %+v", overview[1])
	}
	for _, s := range overview[0].Slots {
		if s.Booked {
			t.Errorf("House slot %d should be free", s.ID)
		}
	}
}

func TestSlotDeleteRemovesAppointments(t *testing.T) {
	svc, f := newSlotFixture(t)
	ctx := context.Background()
	a := f.book(t, patient1, 10)

	if err := svc.Delete(ctx, 10); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := f.svc.Get(ctx, admin, a.ID)
	assertKind(t, err, apperrors.KindNotFound)
	_, err = svc.GetByID(ctx, 10)
	assertKind(t, err, apperrors.KindNotFound)
}
