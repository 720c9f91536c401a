package handlers

import (
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type SlotHandler struct {
	service SlotService
	log     zerolog.Logger
}

func NewSlotHandler(service SlotService, log zerolog.Logger) *SlotHandler {
	return &SlotHandler{service: service, log: log}
}

func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var slot models.Slot
	if err := c.ShouldBindJSON(&slot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	slot.ID = 0
	if err := h.service.Create(c.Request.Context(), &slot); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// DeleteSlot removes the slot together with the appointments booked into it.
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
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

func (h *SlotHandler) GetDoctorSlotsOverview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
