package models

import (
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Doctor model
type Doctor struct {
	ID             uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name           string    `gorm:"column:name;size:100;not null;index" json:"name"`
	Specialization string    `gorm:"column:specialization;size:100;not null;index" json:"specialization"`
	Email          string    `gorm:"column:email;size:255" json:"email"`
	Phone          string    `gorm:"column:phone;size:30" json:"phone"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Slots          []Slot    `gorm:"foreignKey:DoctorID;references:ID" json:"-"`
}

func (Doctor) TableName() string {
	return "doctor"
}

// Slot is a bookable window on a single date. Times are zero-padded "HH:MM"
// so string comparison orders them.
type Slot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	DoctorID  uint      `gorm:"column:doctor_id;not null;index;uniqueIndex:idx_slot_doctor_date_start" json:"doctor_id"`
	Date      string    `gorm:"column:date;type:varchar(10);not null;index;uniqueIndex:idx_slot_doctor_date_start" json:"date"`
	StartTime string    `gorm:"column:start_time;type:varchar(5);not null;uniqueIndex:idx_slot_doctor_date_start" json:"start_time"`
	EndTime   string    `gorm:"column:end_time;type:varchar(5);not null" json:"end_time"`
	// LastTurn is the highest turn number ever issued on the slot.
	LastTurn  int       `gorm:"column:last_turn;not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Doctor    Doctor    `gorm:"foreignKey:DoctorID;references:ID" json:"-"`
}

func (Slot) TableName() string {
	return "slot"
}

// StartsAt parses the slot start in loc.
func (s Slot) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.StartTime, loc)
}

// Overlaps reports whether the [start, end) windows of s and other intersect.
// Slots on different dates never overlap.
func (s Slot) Overlaps(other Slot) bool {
	if s.Date != other.Date {
		return false
	}
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// SlotView is a slot together with its derived booked state.
type SlotView struct {
	Slot
	Booked bool `json:"booked"`
}

// DoctorSlots groups a doctor with its slots for the admin overview.
type DoctorSlots struct {
	Doctor Doctor     `json:"doctor"`
	Slots  []SlotView `json:"slots"`
}
