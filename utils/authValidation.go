package utils

import (
	"HospitalBooking/models"
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validation errors
var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one uppercase letter, one lowercase letter, one digit, and one special character")
	ErrInvalidDate        = errors.New("must be a date in YYYY-MM-DD format")
	ErrInvalidTime        = errors.New("must be a time in HH:MM format")
	ErrEndBeforeStart     = errors.New("end time must be after start time")
)

var (
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`\d`)
	specialRegex   = regexp.MustCompile(`[@$!%*?&]`)
	phoneRegex     = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// ValidateUserData validates registration data using ozzo-validation.
func ValidateUserData(user models.User) error {
	return validation.ValidateStruct(&user,
		validation.Field(&user.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&user.Email, validation.Required, is.Email),
		validation.Field(&user.Phone, validation.Match(phoneRegex).Error("must be a valid phone number")),
		validation.Field(&user.Password, validation.Required.Error("password cannot be blank"), validation.By(validatePassword)),
	)
}

func ValidateDoctor(doctor models.Doctor) error {
	return validation.ValidateStruct(&doctor,
		validation.Field(&doctor.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&doctor.Specialization, validation.Required, validation.Length(2, 100)),
		validation.Field(&doctor.Email, is.Email),
		validation.Field(&doctor.Phone, validation.Match(phoneRegex).Error("must be a valid phone number")),
	)
}

// ValidateSlot checks the date and time formats and that the window is not empty.
func ValidateSlot(slot models.Slot) error {
	err := validation.ValidateStruct(&slot,
		validation.Field(&slot.DoctorID, validation.Required),
		validation.Field(&slot.Date, validation.Required, validation.By(layoutRule(models.DateLayout, ErrInvalidDate))),
		validation.Field(&slot.StartTime, validation.Required, validation.By(layoutRule(models.TimeLayout, ErrInvalidTime))),
		validation.Field(&slot.EndTime, validation.Required, validation.By(layoutRule(models.TimeLayout, ErrInvalidTime))),
	)
	if err != nil {
		return err
	}
	if slot.EndTime <= slot.StartTime {
		return validation.Errors{"end_time": ErrEndBeforeStart}
	}
	return nil
}

func layoutRule(layout string, failure error) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil || len(s) != len(layout) {
			return failure
		}
		return nil
	}
}

// validatePassword checks the password for length and complexity.
func validatePassword(value interface{}) error {
	password, _ := value.(string)

	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	if !lowercaseRegex.MatchString(password) ||
		!uppercaseRegex.MatchString(password) ||
		!digitRegex.MatchString(password) ||
		!specialRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}

	return nil
}
