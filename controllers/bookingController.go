package controllers

import (
	"HospitalBooking/handlers"
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"HospitalBooking/utils"

	"github.com/gin-gonic/gin"
)

type BookingController struct {
	Doctors      *handlers.DoctorHandler
	Slots        *handlers.SlotHandler
	Appointments *handlers.AppointmentHandler
	tokens       *utils.TokenMaker
}

func NewBookingController(doctors *handlers.DoctorHandler, slots *handlers.SlotHandler, appointments *handlers.AppointmentHandler, tokens *utils.TokenMaker) *BookingController {
	return &BookingController{
		Doctors:      doctors,
		Slots:        slots,
		Appointments: appointments,
		tokens:       tokens,
	}
}

// RegisterRoutes mounts the patient facing booking routes and the admin
// dashboard routes.
func (bc *BookingController) RegisterRoutes(router *gin.Engine) {
	patient := router.Group("/").Use(middlewares.TokenAuthMiddleware(bc.tokens))
	{
		patient.GET("/doctors", bc.Doctors.GetAllDoctors)
		patient.GET("/doctors/:id", bc.Doctors.GetDoctorByID)
		patient.GET("/doctors/:id/slots", bc.Doctors.GetDoctorSlots)

		patient.POST("/appointments", bc.Appointments.CreateAppointment)
		patient.GET("/appointments", bc.Appointments.GetMyAppointments)
		patient.GET("/appointments/:id", bc.Appointments.GetAppointmentByID)
		patient.GET("/appointments/:id/slip", bc.Appointments.GetAppointmentSlip)
		patient.POST("/appointments/:id/cancel", bc.Appointments.CancelAppointment)
		patient.POST("/appointments/:id/reschedule", bc.Appointments.RescheduleAppointment)
	}

	admin := router.Group("/admin").Use(
		middlewares.TokenAuthMiddleware(bc.tokens),
		middlewares.RoleAuthMiddleware(models.RoleAdmin),
	)
	{
		admin.POST("/doctors", bc.Doctors.CreateDoctor)
		admin.PUT("/doctors/:id", bc.Doctors.UpdateDoctor)
		admin.DELETE("/doctors/:id", bc.Doctors.DeleteDoctor)

		admin.POST("/slots", bc.Slots.CreateSlot)
		admin.DELETE("/slots/:id", bc.Slots.DeleteSlot)
		admin.GET("/doctor-slots", bc.Slots.GetDoctorSlotsOverview)

		admin.GET("/appointments", bc.Appointments.GetAllAppointments)
		admin.POST("/appointments", bc.Appointments.CreateAppointment)
		admin.POST("/appointments/:id/cancel", bc.Appointments.CancelAppointment)
		admin.POST("/appointments/:id/reschedule", bc.Appointments.RescheduleAppointment)
		admin.DELETE("/appointments/:id", bc.Appointments.DeleteAppointment)
	}
}
