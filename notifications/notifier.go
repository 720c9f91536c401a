package notifications

import (
	"HospitalBooking/models"
	"context"
	"errors"
	"fmt"
)

type Action string

const (
	ActionBooked      Action = "booked"
	ActionCanceled    Action = "canceled"
	ActionRescheduled Action = "rescheduled"
	ActionDeleted     Action = "deleted"
)

// Recipient is anyone who hears about an appointment change.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Notification describes one committed appointment transition.
type Notification struct {
	AppointmentID uint
	Action        Action
	Initiator     string
	ActorType     models.ActorKind
	DoctorName    string
	Date          string
	StartTime     string
	EndTime       string
	Recipients    []Recipient
}

func (n Notification) Subject() string {
	return fmt.Sprintf("Appointment %s", n.Action)
}

func (n Notification) Message() string {
	return fmt.Sprintf("Appointment with Dr. %s on %s at %s - %s has been %s by %s (%s).",
		n.DoctorName, n.Date, n.StartTime, n.EndTime, n.Action, n.ActorType, n.Initiator)
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewAppointmentNotification builds the notification for an appointment that
// has its Doctor, Slot and User loaded. Admins and the doctor are always
// informed, the patient only when the booking is linked to an account.
func NewAppointmentNotification(a models.Appointment, action Action, actor models.Actor, admins []models.User) Notification {
	n := Notification{
		AppointmentID: a.ID,
		Action:        action,
		Initiator:     actor.Username,
		ActorType:     actor.Kind,
		DoctorName:    a.Doctor.Name,
		Date:          a.Slot.Date,
		StartTime:     a.Slot.StartTime,
		EndTime:       a.Slot.EndTime,
	}
	if a.User != nil {
		n.Recipients = append(n.Recipients, Recipient{Name: a.User.Username, Email: a.User.Email, Phone: a.User.Phone})
	}
	for _, admin := range admins {
		if a.User != nil && admin.ID == a.User.ID {
			continue
		}
		n.Recipients = append(n.Recipients, Recipient{Name: admin.Username, Email: admin.Email, Phone: admin.Phone})
	}
	n.Recipients = append(n.Recipients, Recipient{Name: "Dr. " + a.Doctor.Name, Email: a.Doctor.Email, Phone: a.Doctor.Phone})
	return n
}
