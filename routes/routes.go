package routes

import (
	"HospitalBooking/cache"
	"HospitalBooking/config"
	"HospitalBooking/controllers"
	"HospitalBooking/database"
	"HospitalBooking/handlers"
	"HospitalBooking/middlewares"
	"HospitalBooking/notifications"
	"HospitalBooking/repositories"
	"HospitalBooking/services"
	"HospitalBooking/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(config *config.AppConfig, db *gorm.DB, cache *cache.Cache, locker *database.Locker, notifier notifications.Notifier, log zerolog.Logger) (http.Handler, error) {
	if config.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Apply logging middleware
	router.Use(middlewares.LoggingMiddleware(log))
	router.Use(middlewares.SecurityHeaders())

	// Create and apply CORS middleware configuration
	corsConfig := &middlewares.CorsConfig{
		AllowedOrigins:   config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middlewares.RequestIDHeader},
		AllowCredentials: true,
	}
	router.Use(middlewares.CorsMiddleware(corsConfig))

	// Apply rate limiter middleware
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: config.RateLimitRPS,
		Burst:             config.RateLimitBurst,
	}))

	// Apply Bearer token validation to all routes
	router.Use(middlewares.ValidateBearerToken(config.GetBearerToken()))

	tokens, err := utils.NewTokenMaker(config.SymmetricKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token maker")
	}
	location, err := config.Location()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load booking timezone")
	}

	// Initialize repositories, services, and handlers
	userRepo := repositories.NewUserRepository(db, cache, locker, log)
	doctorRepo := repositories.NewDoctorRepository(db, cache, locker, log)
	slotRepo := repositories.NewSlotRepository(db, cache, log)
	appointmentRepo := repositories.NewAppointmentRepository(db)

	userService := services.NewUserService(userRepo)
	doctorService := services.NewDoctorService(doctorRepo)
	slotService := services.NewSlotService(slotRepo, doctorRepo)
	bookingService := services.NewBookingService(appointmentRepo, userRepo, notifier, services.BookingConfig{
		CancelWindow:            config.CancelWindow,
		RescheduleConflictCheck: config.RescheduleConflictCheck,
		Location:                location,
	}, log)

	authHandler := handlers.NewAuthHandler(userService, tokens, log)
	doctorHandler := handlers.NewDoctorHandler(doctorService, slotService, log)
	slotHandler := handlers.NewSlotHandler(slotService, log)
	appointmentHandler := handlers.NewAppointmentHandler(bookingService, log)

	// Register routes
	controllers.SetupRootRoute(router)
	controllers.NewAuthController(authHandler, tokens).RegisterRoutes(router)
	controllers.NewBookingController(doctorHandler, slotHandler, appointmentHandler, tokens).RegisterRoutes(router)

	return router, nil
}
