package handlers

import (
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"HospitalBooking/services"
	"HospitalBooking/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AppointmentHandler struct {
	service BookingService
	log     zerolog.Logger
}

func NewAppointmentHandler(service BookingService, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, log: log}
}

type rescheduleRequest struct {
	SlotID uint `json:"slot_id" binding:"required"`
}

// CreateAppointment books a slot. Admins name the patient in patient_name.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	var req services.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SlotID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), actor, req)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewAppointmentView(*appointment))
}

func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	appointments, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views(appointments))
}

func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	appointments, err := h.service.ListAll(c.Request.Context(), actor)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views(appointments))
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appointment, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAppointmentView(*appointment))
}

// GetAppointmentSlip serves the turn slip as a PDF download.
func (h *AppointmentHandler) GetAppointmentSlip(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appointment, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}

	slip, err := utils.AppointmentSlip(*appointment)
	if err != nil {
		middlewares.HttpError(c, h.log, "Failed to render appointment slip", http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=appointment-%d.pdf", appointment.ID))
	c.Data(http.StatusOK, "application/pdf", slip)
}

func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appointment, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAppointmentView(*appointment))
}

func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	appointment, err := h.service.Reschedule(c.Request.Context(), actor, id, req.SlotID)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAppointmentView(*appointment))
}

func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func views(appointments []models.Appointment) []models.AppointmentView {
	out := make([]models.AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		out = append(out, models.NewAppointmentView(a))
	}
	return out
}
