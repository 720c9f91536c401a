package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/notifications"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var bookingNow = time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)

var (
	admin    = models.AdminActor(1, "admin")
	patient1 = models.PatientActor(2, "u1")
	patient2 = models.PatientActor(3, "u2")
)

type bookingFixture struct {
	svc      *BookingService
	ledger   *memoryLedger
	users    *memoryUsers
	notifier *recordingNotifier
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	ledger := newMemoryLedger()
	ledger.addDoctor(models.Doctor{ID: 1, Name: "House", Email: "house@example.com"})
	ledger.addDoctor(models.Doctor{ID: 2, Name: "Wilson"})

	ledger.addUser(models.User{ID: 1, Username: "admin", Email: "admin@example.com", Role: models.Role{Name: models.RoleAdmin}})
	ledger.addUser(models.User{ID: 2, Username: "u1", Email: "u1@example.com", Role: models.Role{Name: models.RolePatient}})
	ledger.addUser(models.User{ID: 3, Username: "u2", Email: "u2@example.com", Role: models.Role{Name: models.RolePatient}})

	for _, s := range []models.Slot{
		{ID: 1, DoctorID: 1, Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30"},
		{ID: 10, DoctorID: 1, Date: "2025-01-10", StartTime: "10:00", EndTime: "10:30"},
		{ID: 11, DoctorID: 2, Date: "2025-01-10", StartTime: "10:15", EndTime: "10:45"},
		{ID: 12, DoctorID: 1, Date: "2025-01-10", StartTime: "10:30", EndTime: "11:00"},
		{ID: 13, DoctorID: 1, Date: "2025-01-08", StartTime: "14:00", EndTime: "14:30"},
		{ID: 14, DoctorID: 1, Date: "not-a-date", StartTime: "14:00", EndTime: "14:30"},
		{ID: 15, DoctorID: 1, Date: "2025-01-10", StartTime: "10:15", EndTime: "10:45"},
		{ID: 20, DoctorID: 1, Date: "2025-01-12", StartTime: "09:00", EndTime: "09:30"},
	} {
		ledger.addSlot(s)
	}

	users := newMemoryUsers(ledger)
	notifier := &recordingNotifier{}
	svc := NewBookingService(ledger, users, notifier, BookingConfig{
		CancelWindow:            24 * time.Hour,
		RescheduleConflictCheck: true,
		Location:                time.UTC,
	}, zerolog.Nop())
	svc.now = func() time.Time { return bookingNow }

	return &bookingFixture{svc: svc, ledger: ledger, users: users, notifier: notifier}
}

func (f *bookingFixture) book(t *testing.T, actor models.Actor, slotID uint) *models.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), actor, BookRequest{SlotID: slotID})
	if err != nil {
		t.Fatalf("Book(%s, slot %d): %v", actor.Username, slotID, err)
	}
	return a
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func TestBookingScenario(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first := f.book(t, patient1, 1)
	if first.TurnNumber != 1 || first.Status != models.StatusConfirmed {
		t.Fatalf("U1 booking = turn %d status %s", first.TurnNumber, first.Status)
	}

	second := f.book(t, patient2, 1)
	if second.TurnNumber != 2 || second.Status != models.StatusConfirmed {
		t.Fatalf("U2 booking = turn %d status %s", second.TurnNumber, second.Status)
	}

	canceled, err := f.svc.Cancel(ctx, admin, first.ID)
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled || !canceled.UpdatedByAdmin {
		t.Fatalf("after admin cancel: status %s updated_by_admin %v", canceled.Status, canceled.UpdatedByAdmin)
	}
	if notice := canceled.AdminNotice(); notice != "Your appointment with Dr. House has been canceled by Admin." {
		t.Errorf("admin notice = %q", notice)
	}

	rebooked := f.book(t, patient1, 1)
	if rebooked.ID == first.ID {
		t.Error("expected a new appointment")
	}
	if rebooked.TurnNumber != 3 || rebooked.Status != models.StatusConfirmed {
		t.Fatalf("U1 rebooking = turn %d status %s", rebooked.TurnNumber, rebooked.Status)
	}
}

func TestBookDuplicateSlot(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, patient1, 10)

	_, err := f.svc.Book(context.Background(), patient1, BookRequest{SlotID: 10})
	assertKind(t, err, apperrors.KindConflict)
	if apperrors.MessageOf(err) != msgDuplicateSlot {
		t.Errorf("unexpected message %q", apperrors.MessageOf(err))
	}
	if len(f.ledger.appointments) != 1 {
		t.Errorf("expected one appointment, got %d", len(f.ledger.appointments))
	}
}

func TestBookOverlapAcrossDoctors(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, patient1, 10)

	_, err := f.svc.Book(context.Background(), patient1, BookRequest{SlotID: 11})
	assertKind(t, err, apperrors.KindConflict)
	if apperrors.MessageOf(err) != msgOverlap {
		t.Errorf("unexpected message %q", apperrors.MessageOf(err))
	}

	adjacent := f.book(t, patient1, 12)
	if adjacent.Status != models.StatusConfirmed {
		t.Errorf("adjacent booking status %s", adjacent.Status)
	}

	// Another patient may share the overlapping window.
	f.book(t, patient2, 11)
}

func TestBookAfterCancelIgnoresCanceled(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, patient1, 20)
	if _, err := f.svc.Cancel(context.Background(), patient1, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	again := f.book(t, patient1, 20)
	if again.TurnNumber != 2 {
		t.Errorf("expected turn 2, got %d", again.TurnNumber)
	}
}

func TestTurnNumberCountsExisting(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, patient1, 20)
	f.book(t, patient2, 20)

	third, err := f.svc.Book(context.Background(), admin, BookRequest{SlotID: 20, PatientName: "walk-in"})
	if err != nil {
		t.Fatalf("admin book: %v", err)
	}
	if third.TurnNumber != 3 {
		t.Errorf("expected turn 3, got %d", third.TurnNumber)
	}
}

func TestBookUnknownSlot(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.Book(context.Background(), patient1, BookRequest{SlotID: 999})
	assertKind(t, err, apperrors.KindNotFound)
}

func TestBookStorageConflict(t *testing.T) {
	f := newBookingFixture(t)
	f.ledger.insertErr = apperrors.NewStorageConflictError("the slot was just taken, please try another slot", errors.New("23505"))

	_, err := f.svc.Book(context.Background(), patient1, BookRequest{SlotID: 1})
	assertKind(t, err, apperrors.KindStorageConflict)

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || !appErr.Retryable() {
		t.Error("expected a retryable error")
	}
	if len(f.ledger.appointments) != 0 {
		t.Error("expected nothing to be persisted")
	}
	if len(f.notifier.sent) != 0 {
		t.Error("expected no notification for a failed booking")
	}
}

func TestAdminBooksOnBehalf(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	linked, err := f.svc.Book(ctx, admin, BookRequest{SlotID: 1, PatientName: " u2 "})
	if err != nil {
		t.Fatalf("book for u2: %v", err)
	}
	if !linked.OwnedBy(3) || linked.PatientName != "u2" {
		t.Errorf("expected booking linked to u2, got %+v", linked)
	}

	// u2 already holds slot 1.
	_, err = f.svc.Book(ctx, patient2, BookRequest{SlotID: 1})
	assertKind(t, err, apperrors.KindConflict)

	unresolved, err := f.svc.Book(ctx, admin, BookRequest{SlotID: 1, PatientName: "walk-in"})
	if err != nil {
		t.Fatalf("book for walk-in: %v", err)
	}
	if unresolved.UserID != nil || unresolved.DisplayName() != "walk-in" {
		t.Errorf("expected unresolved booking, got %+v", unresolved)
	}

	_, err = f.svc.Book(ctx, admin, BookRequest{SlotID: 1, PatientName: "walk-in"})
	assertKind(t, err, apperrors.KindConflict)

	_, err = f.svc.Book(ctx, admin, BookRequest{SlotID: 1})
	assertKind(t, err, apperrors.KindValidation)
}

func TestAdminChangeBackfillsUser(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, admin, BookRequest{SlotID: 10, PatientName: "carol"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	f.ledger.addUser(models.User{ID: 4, Username: "carol", Role: models.Role{Name: models.RolePatient}})

	moved, err := f.svc.Reschedule(ctx, admin, a.ID, 20)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.OwnedBy(4) || !moved.UpdatedByAdmin || moved.Status != models.StatusRescheduled {
		t.Errorf("expected backfilled rescheduled appointment, got %+v", moved)
	}
	if notice := moved.AdminNotice(); !strings.Contains(notice, "rescheduled by Admin") {
		t.Errorf("admin notice = %q", notice)
	}
}

func TestPatientCancelWindow(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	soon := f.book(t, patient1, 13)
	_, err := f.svc.Cancel(ctx, patient1, soon.ID)
	assertKind(t, err, apperrors.KindValidation)
	if got := f.ledger.appointments[soon.ID].Status; got != models.StatusConfirmed {
		t.Fatalf("status changed to %s", got)
	}

	canceled, err := f.svc.Cancel(ctx, admin, soon.ID)
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled {
		t.Errorf("expected canceled, got %s", canceled.Status)
	}

	later := f.book(t, patient1, 20)
	canceled, err = f.svc.Cancel(ctx, patient1, later.ID)
	if err != nil {
		t.Fatalf("patient cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled || canceled.UpdatedByAdmin {
		t.Errorf("unexpected state after patient cancel: %+v", canceled)
	}
}

func TestPatientCancelUnparsableSlotFailsOpen(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, patient1, 14)

	canceled, err := f.svc.Cancel(context.Background(), patient1, a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled {
		t.Errorf("expected canceled, got %s", canceled.Status)
	}
}

func TestCancelCanceledIsRejected(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, patient1, 20)
	if _, err := f.svc.Cancel(context.Background(), admin, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.svc.Cancel(context.Background(), admin, a.ID)
	assertKind(t, err, apperrors.KindValidation)
	_, err = f.svc.Reschedule(context.Background(), admin, a.ID, 1)
	assertKind(t, err, apperrors.KindValidation)
}

func TestNonOwnerCannotChange(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	a := f.book(t, patient1, 10)
	before := f.ledger.appointments[a.ID]

	_, err := f.svc.Reschedule(ctx, patient2, a.ID, 20)
	assertKind(t, err, apperrors.KindPermissionDenied)
	_, err = f.svc.Cancel(ctx, patient2, a.ID)
	assertKind(t, err, apperrors.KindPermissionDenied)
	_, err = f.svc.Get(ctx, patient2, a.ID)
	assertKind(t, err, apperrors.KindPermissionDenied)

	after := f.ledger.appointments[a.ID]
	if after.SlotID != before.SlotID || after.Status != before.Status || after.TurnNumber != before.TurnNumber {
		t.Errorf("appointment changed: before %+v after %+v", before, after)
	}
}

func TestReschedule(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.book(t, patient2, 20)
	a := f.book(t, patient1, 10)

	moved, err := f.svc.Reschedule(ctx, patient1, a.ID, 20)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.SlotID != 20 || moved.TurnNumber != 2 || moved.Status != models.StatusRescheduled {
		t.Errorf("unexpected appointment after reschedule: %+v", moved)
	}
	if moved.UpdatedByAdmin {
		t.Error("patient reschedule must not be flagged as admin change")
	}

	_, err = f.svc.Reschedule(ctx, patient1, a.ID, 11)
	assertKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Reschedule(ctx, patient1, a.ID, 20)
	assertKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Reschedule(ctx, patient1, a.ID, 999)
	assertKind(t, err, apperrors.KindNotFound)

	_, err = f.svc.Reschedule(ctx, patient1, 999, 20)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestRescheduleConflictCheck(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.book(t, patient1, 10)
	other := f.book(t, patient1, 20)

	_, err := f.svc.Reschedule(ctx, patient1, other.ID, 15)
	assertKind(t, err, apperrors.KindConflict)
	if got := f.ledger.appointments[other.ID].SlotID; got != 20 {
		t.Fatalf("slot changed to %d", got)
	}

	f.svc.cfg.RescheduleConflictCheck = false
	if _, err := f.svc.Reschedule(ctx, patient1, other.ID, 15); err != nil {
		t.Fatalf("reschedule with check disabled: %v", err)
	}
}

func TestRescheduleExcludesItself(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, patient1, 10)

	moved, err := f.svc.Reschedule(context.Background(), patient1, a.ID, 15)
	if err != nil {
		t.Fatalf("reschedule into a window overlapping the old slot: %v", err)
	}
	if moved.SlotID != 15 {
		t.Errorf("expected slot 15, got %d", moved.SlotID)
	}
}

func TestDelete(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	a := f.book(t, patient1, 10)

	err := f.svc.Delete(ctx, patient1, a.ID)
	assertKind(t, err, apperrors.KindPermissionDenied)

	if err := f.svc.Delete(ctx, admin, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.svc.Get(ctx, admin, a.ID)
	assertKind(t, err, apperrors.KindNotFound)

	err = f.svc.Delete(ctx, admin, a.ID)
	assertKind(t, err, apperrors.KindNotFound)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.Action != "deleted" || last.DoctorName != "House" {
		t.Errorf("unexpected delete notification %+v", last)
	}
}

func TestListing(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.book(t, patient1, 10)
	f.book(t, patient2, 10)
	f.book(t, patient1, 20)

	mine, err := f.svc.ListMine(ctx, patient1)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 appointments for u1, got %d", len(mine))
	}

	_, err = f.svc.ListAll(ctx, patient1)
	assertKind(t, err, apperrors.KindPermissionDenied)

	all, err := f.svc.ListAll(ctx, admin)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 appointments, got %d", len(all))
	}
}

func TestNotificationsAfterEachTransition(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a := f.book(t, patient1, 20)
	if _, err := f.svc.Reschedule(ctx, patient1, a.ID, 1); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, admin, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(f.notifier.sent) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(f.notifier.sent))
	}
	want := []string{
		"Appointment with Dr. House on 2025-01-12 at 09:00 - 09:30 has been booked by Patient (u1).",
		"Appointment with Dr. House on 2025-01-10 at 09:00 - 09:30 has been rescheduled by Patient (u1).",
		"Appointment with Dr. House on 2025-01-10 at 09:00 - 09:30 has been canceled by Admin (admin).",
	}
	for i, n := range f.notifier.sent {
		if n.Message() != want[i] {
			t.Errorf("notification %d = %q, want %q", i, n.Message(), want[i])
		}
	}

	var names []string
	for _, r := range f.notifier.sent[0].Recipients {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "u1,admin,Dr. House" {
		t.Errorf("recipients = %s", got)
	}
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	f := newBookingFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.users.adminsErr = errors.New("db down")

	a, err := f.svc.Book(context.Background(), patient1, BookRequest{SlotID: 1})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != models.StatusConfirmed {
		t.Errorf("expected confirmed booking, got %s", a.Status)
	}
	if len(f.notifier.sent) != 1 {
		t.Errorf("expected notifier to be called once, got %d", len(f.notifier.sent))
	}
}

func TestTurnNotReusedAfterDelete(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.book(t, patient1, 1)
	top := f.book(t, patient2, 1)
	if top.TurnNumber != 2 {
		t.Fatalf("expected turn 2, got %d", top.TurnNumber)
	}
	if err := f.svc.Delete(ctx, admin, top.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	next, err := f.svc.Book(ctx, admin, BookRequest{SlotID: 1, PatientName: "walk-in"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if next.TurnNumber != 3 {
		t.Errorf("expected turn 3 after deleting turn 2, got %d", next.TurnNumber)
	}
}

func TestTurnNotReusedAfterRescheduleAway(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.book(t, patient1, 1)
	top := f.book(t, patient2, 1)
	if _, err := f.svc.Reschedule(ctx, patient2, top.ID, 20); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	next, err := f.svc.Book(ctx, admin, BookRequest{SlotID: 1, PatientName: "walk-in"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if next.TurnNumber != 3 {
		t.Errorf("expected turn 3 after turn 2 moved away, got %d", next.TurnNumber)
	}

	// Moving back issues a fresh turn as well.
	back, err := f.svc.Reschedule(ctx, patient2, top.ID, 1)
	if err != nil {
		t.Fatalf("reschedule back: %v", err)
	}
	if back.TurnNumber != 4 {
		t.Errorf("expected turn 4 on return, got %d", back.TurnNumber)
	}
}

func TestReloadFailureReturnsCommittedState(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.ledger.getErr = errors.New("replica lag")

	booked, err := f.svc.Book(ctx, patient1, BookRequest{SlotID: 1})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booked.ID == 0 || booked.SlotID != 1 || booked.TurnNumber != 1 || booked.Status != models.StatusConfirmed {
		t.Errorf("unexpected fallback after book: %+v", booked)
	}

	moved, err := f.svc.Reschedule(ctx, patient1, booked.ID, 20)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.SlotID != 20 || moved.Status != models.StatusRescheduled || moved.DoctorID != 1 {
		t.Errorf("unexpected fallback after reschedule: %+v", moved)
	}

	canceled, err := f.svc.Cancel(ctx, admin, booked.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled || !canceled.UpdatedByAdmin {
		t.Errorf("unexpected fallback after cancel: %+v", canceled)
	}
}

func TestDeleteNotifiesStateSeenInTransaction(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, patient1, 10)

	// A reschedule commits between the caller's request and the delete.
	f.ledger.beforeTx = func() {
		moved := f.ledger.appointments[a.ID]
		moved.SlotID = 20
		moved.Status = models.StatusRescheduled
		f.ledger.appointments[a.ID] = moved
	}

	if err := f.svc.Delete(context.Background(), admin, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.Action != notifications.ActionDeleted || last.Date != "2025-01-12" || last.StartTime != "09:00" {
		t.Errorf("delete notification describes %s %s, want the current slot", last.Date, last.StartTime)
	}
	if len(last.Recipients) == 0 || last.Recipients[0].Name != "u1" {
		t.Errorf("expected the patient to be notified, got %+v", last.Recipients)
	}
}
