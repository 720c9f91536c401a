package handlers

import (
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type DoctorHandler struct {
	service DoctorService
	slots   SlotService
	log     zerolog.Logger
}

func NewDoctorHandler(service DoctorService, slots SlotService, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{service: service, slots: slots, log: log}
}

func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var doctor models.Doctor
	if err := c.ShouldBindJSON(&doctor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	doctor.ID = 0
	if err := h.service.Create(c.Request.Context(), &doctor); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, doctor)
}

func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doctor, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, doctor)
}

func (h *DoctorHandler) GetAllDoctors(c *gin.Context) {
	doctors, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}

func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var doctor models.Doctor
	if err := c.ShouldBindJSON(&doctor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	doctor.ID = id
	if err := h.service.Update(c.Request.Context(), &doctor); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, doctor)
}

// DeleteDoctor removes the doctor with its slots and appointments.
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DoctorHandler) GetDoctorSlots(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	slots, err := h.slots.ListByDoctor(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
