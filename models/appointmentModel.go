package models

import (
	"time"
)

type AppointmentStatus string

const (
	StatusConfirmed   AppointmentStatus = "Confirmed"
	StatusCanceled    AppointmentStatus = "Canceled"
	StatusRescheduled AppointmentStatus = "Rescheduled"
)

// Appointment model. UserID is nil while the booking is only known by
// PatientName.
type Appointment struct {
	ID             uint              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID         *uint             `gorm:"column:user_id;index" json:"user_id"`
	PatientName    string            `gorm:"column:patient_name;size:100;not null;index" json:"patient_name"`
	DoctorID       uint              `gorm:"column:doctor_id;not null;index" json:"doctor_id"`
	SlotID         uint              `gorm:"column:slot_id;not null;index;uniqueIndex:idx_appointment_slot_turn" json:"slot_id"`
	TurnNumber     int               `gorm:"column:turn_number;not null;uniqueIndex:idx_appointment_slot_turn" json:"turn_number"`
	Status         AppointmentStatus `gorm:"column:status;size:20;check:status IN ('Confirmed', 'Canceled', 'Rescheduled');not null" json:"status"`
	UpdatedByAdmin bool              `gorm:"column:updated_by_admin;not null;default:false" json:"updated_by_admin"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	User           *User             `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Doctor         Doctor            `gorm:"foreignKey:DoctorID;references:ID" json:"doctor"`
	Slot           Slot              `gorm:"foreignKey:SlotID;references:ID" json:"slot"`
}

func (Appointment) TableName() string {
	return "appointment"
}

func (a Appointment) IsActive() bool {
	return a.Status != StatusCanceled
}

// OwnedBy reports whether the appointment is linked to userID.
func (a Appointment) OwnedBy(userID uint) bool {
	return a.UserID != nil && *a.UserID == userID
}

// DisplayName is the linked username when known, else the free-text name.
func (a Appointment) DisplayName() string {
	if a.User != nil && a.User.Username != "" {
		return a.User.Username
	}
	return a.PatientName
}

// AdminNotice is shown on the patient dashboard after an admin-driven change.
func (a Appointment) AdminNotice() string {
	if !a.UpdatedByAdmin {
		return ""
	}
	switch a.Status {
	case StatusCanceled:
		return "Your appointment with Dr. " + a.Doctor.Name + " has been canceled by Admin."
	case StatusRescheduled:
		return "Your appointment with Dr. " + a.Doctor.Name + " has been rescheduled by Admin."
	}
	return ""
}

// AppointmentView is the JSON shape returned to clients.
type AppointmentView struct {
	Appointment
	Patient     string `json:"patient"`
	AdminNotice string `json:"admin_notice,omitempty"`
}

func NewAppointmentView(a Appointment) AppointmentView {
	return AppointmentView{Appointment: a, Patient: a.DisplayName(), AdminNotice: a.AdminNotice()}
}
