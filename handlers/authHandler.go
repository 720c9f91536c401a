package handlers

import (
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"HospitalBooking/services"
	"HospitalBooking/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	UserService services.UserService
	tokens      *utils.TokenMaker
	log         zerolog.Logger
}

func NewAuthHandler(userService services.UserService, tokens *utils.TokenMaker, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		UserService: userService,
		tokens:      tokens,
		log:         log,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register handles new patient registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, Phone: req.Phone, Password: req.Password}
	if err := h.UserService.Register(c.Request.Context(), &user); err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates the user by email or username and returns tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	identifier := credentials.Email
	if identifier == "" {
		identifier = credentials.Username
	}

	user, err := h.UserService.AuthenticateUser(c.Request.Context(), identifier, credentials.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		middlewares.RespondError(c, h.log, err)
		return
	}

	accessToken, refreshToken, err := h.tokens.GenerateTokens(user.ID, user.Username, user.Role.Name)
	if err != nil {
		middlewares.HttpError(c, h.log, "Failed to generate tokens", http.StatusInternalServerError, err)
		return
	}
	utils.SetAuthCookies(c, accessToken, refreshToken)

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshToken issues a new access token from a refresh token passed as the
// refreshToken query parameter or cookie.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := utils.TokenFromRequest(c, utils.RefreshTokenCookie)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}

	claims, err := h.tokens.ValidateToken(token, models.RoleAdmin, models.RolePatient)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		middlewares.HttpError(c, h.log, "Failed to generate access token", http.StatusInternalServerError, err)
		return
	}
	utils.SetAuthCookies(c, accessToken, token)

	c.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

// Logoff logs the user out by clearing cookies
func (h *AuthHandler) Logoff(c *gin.Context) {
	utils.ClearAuthCookies(c)
	c.Status(http.StatusOK)
}

// GetUserProfile retrieves the current user's profile
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	actor, ok := actorFrom(c, h.log)
	if !ok {
		return
	}

	user, err := h.UserService.GetUserByID(c.Request.Context(), actor.UserID)
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AdminManageUsers lists every account for administrators
func (h *AuthHandler) AdminManageUsers(c *gin.Context) {
	users, err := h.UserService.GetAllUsers(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
