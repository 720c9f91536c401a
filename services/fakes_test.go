package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/notifications"
	"HospitalBooking/repositories"
	"context"
	"errors"
	"sort"
	"strings"
)

// memoryLedger is an in-memory AppointmentRepository that enforces the same
// uniqueness rules as the database schema.
type memoryLedger struct {
	appointments map[uint]models.Appointment
	slots        map[uint]models.Slot
	doctors      map[uint]models.Doctor
	users        map[uint]models.User
	nextID       uint

	// insertErr is returned by the next Insert, simulating a lost race.
	insertErr error
	// getErr is returned by GetByID.
	getErr error
	// beforeTx runs once when the next transaction opens, standing in for a
	// concurrent writer that committed just before it.
	beforeTx func()
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		appointments: map[uint]models.Appointment{},
		slots:        map[uint]models.Slot{},
		doctors:      map[uint]models.Doctor{},
		users:        map[uint]models.User{},
	}
}

func (m *memoryLedger) addDoctor(d models.Doctor) {
	m.doctors[d.ID] = d
}

func (m *memoryLedger) addSlot(s models.Slot) {
	m.slots[s.ID] = s
}

func (m *memoryLedger) addUser(u models.User) {
	m.users[u.ID] = u
}

func (m *memoryLedger) Transaction(ctx context.Context, fn func(tx repositories.LedgerTx) error) error {
	if m.beforeTx != nil {
		hook := m.beforeTx
		m.beforeTx = nil
		hook()
	}
	snapshot := make(map[uint]models.Appointment, len(m.appointments))
	for k, v := range m.appointments {
		snapshot[k] = v
	}
	slots := make(map[uint]models.Slot, len(m.slots))
	for k, v := range m.slots {
		slots[k] = v
	}
	nextID := m.nextID
	if err := fn(m); err != nil {
		m.appointments = snapshot
		m.slots = slots
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *memoryLedger) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment")
	}
	loaded := m.withRelations(a)
	return &loaded, nil
}

func (m *memoryLedger) ListByUser(ctx context.Context, userID uint) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.sorted() {
		if a.OwnedBy(userID) {
			out = append(out, m.withRelations(a))
		}
	}
	return out, nil
}

func (m *memoryLedger) GetAll(ctx context.Context) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.sorted() {
		out = append(out, m.withRelations(a))
	}
	return out, nil
}

func (m *memoryLedger) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment")
	}
	return &a, nil
}

func (m *memoryLedger) GetAppointmentDetails(ctx context.Context, id uint) (*models.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment")
	}
	loaded := m.withRelations(a)
	return &loaded, nil
}

func (m *memoryLedger) GetSlot(ctx context.Context, id uint) (*models.Slot, error) {
	s, ok := m.slots[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("slot")
	}
	return &s, nil
}

func (m *memoryLedger) ActiveForPatientOnDate(ctx context.Context, ref models.PatientRef, date string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.sorted() {
		if !a.IsActive() {
			continue
		}
		slot := m.slots[a.SlotID]
		if slot.Date != date {
			continue
		}
		if ref.UserID != nil {
			if !a.OwnedBy(*ref.UserID) {
				continue
			}
		} else if a.UserID != nil || a.PatientName != ref.Name {
			continue
		}
		a.Slot = slot
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryLedger) NextTurn(ctx context.Context, slotID uint) (int, error) {
	slot, ok := m.slots[slotID]
	if !ok {
		return 0, apperrors.NewNotFoundError("slot")
	}
	slot.LastTurn++
	m.slots[slotID] = slot
	return slot.LastTurn, nil
}

func (m *memoryLedger) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) Insert(ctx context.Context, a *models.Appointment) error {
	if m.insertErr != nil {
		err := m.insertErr
		m.insertErr = nil
		return err
	}
	if err := m.checkUnique(*a); err != nil {
		return err
	}
	m.nextID++
	a.ID = m.nextID
	m.appointments[a.ID] = *a
	return nil
}

func (m *memoryLedger) Save(ctx context.Context, a *models.Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return apperrors.NewNotFoundError("appointment")
	}
	if err := m.checkUnique(*a); err != nil {
		return err
	}
	m.appointments[a.ID] = *a
	return nil
}

func (m *memoryLedger) Delete(ctx context.Context, id uint) error {
	if _, ok := m.appointments[id]; !ok {
		return apperrors.NewNotFoundError("appointment")
	}
	delete(m.appointments, id)
	return nil
}

func (m *memoryLedger) checkUnique(a models.Appointment) error {
	for _, other := range m.appointments {
		if other.ID == a.ID {
			continue
		}
		if other.SlotID == a.SlotID && other.TurnNumber == a.TurnNumber {
			return apperrors.NewStorageConflictError("the slot was just taken, please try another slot", errors.New("idx_appointment_slot_turn"))
		}
		if a.UserID != nil && a.IsActive() && other.IsActive() && other.SlotID == a.SlotID && other.OwnedBy(*a.UserID) {
			return apperrors.NewStorageConflictError("the slot was just taken, please try another slot", errors.New("idx_appointment_active_user_slot"))
		}
	}
	return nil
}

func (m *memoryLedger) withRelations(a models.Appointment) models.Appointment {
	a.Doctor = m.doctors[a.DoctorID]
	a.Slot = m.slots[a.SlotID]
	if a.UserID != nil {
		if u, ok := m.users[*a.UserID]; ok {
			a.User = &u
		}
	}
	return a
}

func (m *memoryLedger) sorted() []models.Appointment {
	out := make([]models.Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memoryUsers is an in-memory UserRepository backed by the ledger's users.
type memoryUsers struct {
	ledger    *memoryLedger
	roles     map[string]models.Role
	adminsErr error
}

func newMemoryUsers(ledger *memoryLedger) *memoryUsers {
	return &memoryUsers{
		ledger: ledger,
		roles: map[string]models.Role{
			models.RoleAdmin:   {ID: 1, Name: models.RoleAdmin},
			models.RolePatient: {ID: 2, Name: models.RolePatient},
		},
	}
}

func (r *memoryUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, u := range r.ledger.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, _ := r.ledger.FindUserByUsername(ctx, username)
	return u != nil, nil
}

func (r *memoryUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.ledger.FindUserByUsername(ctx, username)
}

func (r *memoryUsers) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	u, ok := r.ledger.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryUsers) GetUserForLogin(ctx context.Context, identifier string) (*models.User, error) {
	for _, u := range r.ledger.users {
		if strings.EqualFold(u.Email, identifier) || u.Username == identifier {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memoryUsers) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, apperrors.NewNotFoundError("role")
	}
	return &role, nil
}

func (r *memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uint(len(r.ledger.users) + 1)
	r.ledger.users[user.ID] = *user
	return nil
}

func (r *memoryUsers) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range r.ledger.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUsers) ListAdmins(ctx context.Context) ([]models.User, error) {
	if r.adminsErr != nil {
		return nil, r.adminsErr
	}
	var out []models.User
	for _, u := range r.ledger.users {
		if u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUsers) DeleteUserCache(ctx context.Context, identifiers ...string) error {
	return nil
}

// recordingNotifier remembers every notification and can be told to fail.
type recordingNotifier struct {
	sent []notifications.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification notifications.Notification) error {
	n.sent = append(n.sent, notification)
	return n.err
}

// memorySlots backs SlotRepository and DoctorRepository with the ledger.
type memorySlots struct {
	ledger *memoryLedger
	nextID uint
}

func (r *memorySlots) Create(ctx context.Context, slot *models.Slot) error {
	if _, ok := r.ledger.doctors[slot.DoctorID]; !ok {
		return apperrors.NewNotFoundError("doctor")
	}
	for _, s := range r.ledger.slots {
		if s.DoctorID == slot.DoctorID && s.Date == slot.Date && s.StartTime == slot.StartTime {
			return apperrors.NewStorageConflictError("doctor already has a slot starting at that date and time", errors.New("idx_slot_doctor_date_start"))
		}
	}
	r.nextID++
	slot.ID = 100 + r.nextID
	r.ledger.addSlot(*slot)
	return nil
}

func (r *memorySlots) GetByID(ctx context.Context, id uint) (*models.Slot, error) {
	return r.ledger.GetSlot(ctx, id)
}

func (r *memorySlots) ListByDoctor(ctx context.Context, doctorID uint) ([]models.Slot, error) {
	var out []models.Slot
	for _, s := range r.ledger.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *memorySlots) BookedSlotIDs(ctx context.Context, slotIDs []uint) (map[uint]bool, error) {
	booked := map[uint]bool{}
	for _, id := range slotIDs {
		for _, a := range r.ledger.appointments {
			if a.SlotID == id && a.IsActive() {
				booked[id] = true
			}
		}
	}
	return booked, nil
}

func (r *memorySlots) Delete(ctx context.Context, id uint) error {
	if _, ok := r.ledger.slots[id]; !ok {
		return apperrors.NewNotFoundError("slot")
	}
	for aid, a := range r.ledger.appointments {
		if a.SlotID == id {
			delete(r.ledger.appointments, aid)
		}
	}
	delete(r.ledger.slots, id)
	return nil
}

type memoryDoctors struct {
	ledger *memoryLedger
}

func (r *memoryDoctors) Create(ctx context.Context, doctor *models.Doctor) error {
	doctor.ID = uint(len(r.ledger.doctors) + 1)
	r.ledger.addDoctor(*doctor)
	return nil
}

func (r *memoryDoctors) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	d, ok := r.ledger.doctors[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("doctor")
	}
	return &d, nil
}

func (r *memoryDoctors) GetAll(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	for _, d := range r.ledger.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryDoctors) Update(ctx context.Context, doctor *models.Doctor) error {
	if _, ok := r.ledger.doctors[doctor.ID]; !ok {
		return apperrors.NewNotFoundError("doctor")
	}
	r.ledger.doctors[doctor.ID] = *doctor
	return nil
}

func (r *memoryDoctors) Delete(ctx context.Context, id uint) error {
	if _, ok := r.ledger.doctors[id]; !ok {
		return apperrors.NewNotFoundError("doctor")
	}
	for aid, a := range r.ledger.appointments {
		if a.DoctorID == id {
			delete(r.ledger.appointments, aid)
		}
	}
	for sid, s := range r.ledger.slots {
		if s.DoctorID == id {
			delete(r.ledger.slots, sid)
		}
	}
	delete(r.ledger.doctors, id)
	return nil
}
