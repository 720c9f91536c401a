package database

import (
	"HospitalBooking/models"
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const uniqueViolationCode = "23505"

// activeAppointmentIndex allows at most one non-canceled appointment per
// (user, slot). Rows without a linked user are not constrained.
const activeAppointmentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_appointment_active_user_slot
	ON appointment (user_id, slot_id) WHERE status <> 'Canceled'`

// InitDB opens the database connection, configures it and runs migrations.
func InitDB(ctx context.Context, dsn string, development bool, log zerolog.Logger) (*gorm.DB, error) {
	db, err := Open(ctx, dsn, development)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database initialized successfully")
	return db, nil
}

// Open connects to the database without touching the schema.
func Open(ctx context.Context, dsn string, development bool) (*gorm.DB, error) {
	logMode := logger.Silent
	if development {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: false,
		PrepareStmt:                              true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}
	if err := testDatabaseConnection(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// configureConnectionPool sets up the connection pool settings for the database.
func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	sqlDB.SetMaxOpenConns(40)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return nil
}

// testDatabaseConnection verifies that the database connection is functional.
func testDatabaseConnection(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}
	return nil
}

// Migrate performs schema migrations and seeds the roles.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Doctor{},
		&models.Slot{},
		&models.Appointment{},
	); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	if err := db.Exec(activeAppointmentIndex).Error; err != nil {
		return errors.Wrap(err, "failed to create active appointment index")
	}
	if err := models.SeedRoles(db); err != nil {
		return errors.Wrap(err, "failed to seed roles")
	}
	return nil
}

// SeedAdmin creates the administrator account when no user with that
// username exists yet. The password must already be hashed.
func SeedAdmin(db *gorm.DB, username, email, hashedPassword string) (bool, error) {
	var role models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
		return false, errors.Wrap(err, "failed to load admin role")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check admin account")
	}
	if count > 0 {
		return false, nil
	}

	admin := models.User{Username: username, Email: email, Password: hashedPassword, RoleID: role.ID}
	if err := db.Create(&admin).Error; err != nil {
		return false, errors.Wrap(err, "failed to create admin account")
	}
	return true, nil
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
