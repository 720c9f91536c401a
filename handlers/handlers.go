package handlers

import (
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"HospitalBooking/services"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type DoctorService interface {
	Create(ctx context.Context, doctor *models.Doctor) error
	GetByID(ctx context.Context, id uint) (*models.Doctor, error)
	GetAll(ctx context.Context) ([]models.Doctor, error)
	Update(ctx context.Context, doctor *models.Doctor) error
	Delete(ctx context.Context, id uint) error
}

type SlotService interface {
	Create(ctx context.Context, slot *models.Slot) error
	Delete(ctx context.Context, id uint) error
	ListByDoctor(ctx context.Context, doctorID uint) ([]models.SlotView, error)
	Overview(ctx context.Context) ([]models.DoctorSlots, error)
}

type BookingService interface {
	Book(ctx context.Context, actor models.Actor, req services.BookRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, actor models.Actor, id uint) (*models.Appointment, error)
	Reschedule(ctx context.Context, actor models.Actor, id, newSlotID uint) (*models.Appointment, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
	Get(ctx context.Context, actor models.Actor, id uint) (*models.Appointment, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Appointment, error)
	ListAll(ctx context.Context, actor models.Actor) ([]models.Appointment, error)
}

// parseID reads a positive numeric path parameter, answering 400 otherwise.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func actorFrom(c *gin.Context, log zerolog.Logger) (models.Actor, bool) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, log, "Unauthorized", http.StatusUnauthorized, err)
		return models.Actor{}, false
	}
	return actor, true
}
