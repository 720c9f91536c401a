package repositories

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/cache"
	"HospitalBooking/database"
	"HospitalBooking/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	UserCacheExpiry = 7 * 24 * time.Hour
)

type UserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserForLogin(ctx context.Context, identifier string) (*models.User, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	DeleteUserCache(ctx context.Context, identifiers ...string) error
}

type userRepository struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
	log    zerolog.Logger
}

func NewUserRepository(db *gorm.DB, cache *cache.Cache, locker *database.Locker, log zerolog.Logger) UserRepository {
	return &userRepository{db: db, cache: cache, locker: locker, log: log}
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.cachedUser(ctx, username, "username = ?", username)
}

func (r *userRepository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return r.cachedUser(ctx, fmt.Sprintf("%d", userID), "users.id = ?", userID)
}

// cachedUser returns nil without error when no user matches.
func (r *userRepository) cachedUser(ctx context.Context, identifier string, query string, arg interface{}) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getUserCacheKey(identifier)
	var user models.User
	if found, err := r.cache.GetJSON(ctx, cacheKey, &user); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to get user from cache")
	} else if found {
		return &user, nil
	}

	err := r.db.WithContext(ctx).
		Select("id, username, email, phone, role_id, created_at").
		Preload("Role", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, description")
		}).
		Where(query, arg).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.cache.SetJSON(ctx, cacheKey, user, UserCacheExpiry); err != nil {
		r.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to set user in cache")
	}
	return &user, nil
}

// GetUserForLogin loads the user with its password hash by email or username.
func (r *userRepository) GetUserForLogin(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id, username, email, phone, password, role_id, created_at").
		Preload("Role", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, description")
		}).
		Where("LOWER(email) = LOWER(?) OR username = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("role")
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	lockKey := fmt.Sprintf("user_lock:%s", strings.ToLower(user.Email))
	return withLock(ctx, r.locker, r.log, lockKey, func() error {
		if err := r.db.WithContext(ctx).Omit("Role").Create(user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewStorageConflictError("username or email already registered", err)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return r.DeleteUserCache(ctx, user.Username, fmt.Sprintf("%d", user.ID))
	})
}

func (r *userRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id, username, email, phone, role_id, created_at").
		Preload("Role", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, description")
		}).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := r.db.WithContext(ctx).
		Select("users.id, users.username, users.email, users.phone, users.role_id").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", models.RoleAdmin).
		Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (r *userRepository) DeleteUserCache(ctx context.Context, identifiers ...string) error {
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		keys = append(keys, r.getUserCacheKey(id))
	}
	return r.cache.Delete(ctx, keys...)
}

func (r *userRepository) getUserCacheKey(identifier string) string {
	return fmt.Sprintf("user_cache:%s", identifier)
}
