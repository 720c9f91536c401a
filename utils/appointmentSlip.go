package utils

import (
	"HospitalBooking/models"
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// AppointmentSlip renders the turn slip handed to the patient after booking.
func AppointmentSlip(appointment models.Appointment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 70, 140)
	pdf.CellFormat(0, 10, "Hospital Appointment Slip", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 40)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 25, fmt.Sprintf("Turn %d", appointment.TurnNumber), "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	addSlipDetail(pdf, "Appointment", fmt.Sprintf("#%d", appointment.ID))
	addSlipDetail(pdf, "Patient", appointment.DisplayName())
	addSlipDetail(pdf, "Doctor", "Dr. "+appointment.Doctor.Name)
	addSlipDetail(pdf, "Specialization", appointment.Doctor.Specialization)
	addSlipDetail(pdf, "Date", appointment.Slot.Date)
	addSlipDetail(pdf, "Time", appointment.Slot.StartTime+" - "+appointment.Slot.EndTime)
	addSlipDetail(pdf, "Status", string(appointment.Status))

	if notice := appointment.AdminNotice(); notice != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 5, notice, "", "L", false)
	}

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 10, "Please arrive ten minutes before your slot.", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render appointment slip: %w", err)
	}
	return buf.Bytes(), nil
}

func addSlipDetail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}
