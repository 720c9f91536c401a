package main

import (
	"HospitalBooking/cache"
	"HospitalBooking/config"
	"HospitalBooking/database"
	"HospitalBooking/notifications"
	"HospitalBooking/routes"
	"HospitalBooking/utils"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-booking",
		Short: "Hospital appointment booking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema and seed roles and the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			db, err := database.Open(cmd.Context(), cfg.DBURL, cfg.IsDev())
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")

			if cfg.AdminPassword == "" {
				return nil
			}
			return seedAdmin(db, cfg, log)
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account from ADMIN_USERNAME and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AdminPassword == "" {
				return errors.New("missing ADMIN_PASSWORD environment variable")
			}
			log := newLogger(cfg)

			db, err := database.Open(cmd.Context(), cfg.DBURL, cfg.IsDev())
			if err != nil {
				return err
			}
			return seedAdmin(db, cfg, log)
		},
	}
}

func seedAdmin(db *gorm.DB, cfg *config.AppConfig, log zerolog.Logger) error {
	hashed, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	created, err := database.SeedAdmin(db, cfg.AdminUsername, cfg.AdminEmail, hashed)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("username", cfg.AdminUsername).Msg("admin account created")
	} else {
		log.Info().Str("username", cfg.AdminUsername).Msg("admin account already exists")
	}
	return nil
}

func newLogger(cfg *config.AppConfig) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func newNotifier(cfg *config.AppConfig, log zerolog.Logger) notifications.Notifier {
	notifier := notifications.Multi{notifications.NewLogNotifier(log)}
	if cfg.EmailEnabled() {
		notifier = append(notifier, notifications.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass))
	}
	if cfg.SMSEnabled() {
		notifier = append(notifier, notifications.NewSMSNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber))
	}
	return notifier
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			log.Error().Err(err).Msg("failed to initialize sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()

	// Initialize the database
	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDev(), log)
	if err != nil {
		return err
	}
	if cfg.AdminPassword != "" {
		if err := seedAdmin(db, cfg, log); err != nil {
			return err
		}
	}

	// Initialize Redis
	redisConfig, err := database.RedisConfigFrom(cfg)
	if err != nil {
		return err
	}
	redisClient, err := database.NewRedisClient(ctx, redisConfig, log)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize the cache utility
	appCache, err := cache.NewCache(redisClient)
	if err != nil {
		return err
	}

	handler, err := routes.SetupRoutes(cfg, db, appCache, database.NewLocker(redisClient), newNotifier(cfg, log), log)
	if err != nil {
		return err
	}

	// Configure and start the server
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()

	var wg sync.WaitGroup
	wg.Add(2)

	serverErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				database.MonitorRedisPool(redisClient, log)
			}
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
		log.Error().Err(runErr).Msg("server failed")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	log.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		if runErr == nil {
			runErr = err
		}
	}
	stopMonitor()

	wg.Wait()
	log.Info().Msg("server exited gracefully")
	return runErr
}
