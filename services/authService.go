package services

import (
	"HospitalBooking/apperrors"
	"HospitalBooking/models"
	"HospitalBooking/repositories"
	"HospitalBooking/utils"
	"context"
	"errors"
	"strings"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService interface {
	Register(ctx context.Context, user *models.User) error
	AuthenticateUser(ctx context.Context, identifier, password string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Register creates a patient account.
func (s *userService) Register(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	user.Phone = strings.TrimSpace(user.Phone)

	if err := utils.ValidateUserData(*user); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	exists, err := s.userRepo.EmailExists(ctx, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.NewConflictError("email already registered")
	}
	exists, err = s.userRepo.UsernameExists(ctx, user.Username)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.NewConflictError("username already taken")
	}

	role, err := s.userRepo.GetRoleByName(ctx, models.RolePatient)
	if err != nil {
		return err
	}
	user.RoleID = role.ID
	user.Role = *role

	hashedPassword, err := utils.HashPassword(user.Password)
	if err != nil {
		return apperrors.Wrap(err, "failed to hash password")
	}
	user.Password = hashedPassword

	return s.userRepo.CreateUser(ctx, user)
}

func (s *userService) AuthenticateUser(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserForLogin(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.GetAllUsers(ctx)
}

func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user")
	}
	return user, nil
}
