package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
)

const (
	// Set expiration times for access and refresh tokens.
	AccessTokenExpiry  = 24 * time.Hour
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

var (
	ErrTokenExpired           = errors.New("token expired")
	ErrInsufficientPermission = errors.New("insufficient permissions")
)

// TokenClaims struct represents the data in the token.
type TokenClaims struct {
	UserID   uint      `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Expiry   time.Time `json:"expiry"`
}

// TokenMaker issues and validates PASETO v2 local tokens.
type TokenMaker struct {
	symmetricKey []byte
	now          func() time.Time
}

// NewTokenMaker ensures the key has the correct length (32 bytes).
func NewTokenMaker(symmetricKey string) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long. Current length: %d", len(symmetricKey))
	}
	return &TokenMaker{symmetricKey: []byte(symmetricKey), now: time.Now}, nil
}

// GenerateTokens generates both the access token and refresh token for the given user.
func (m *TokenMaker) GenerateTokens(userID uint, username, role string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.generatePASEToken(userID, username, role, AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = m.generatePASEToken(userID, username, role, RefreshTokenExpiry)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// GenerateAccessToken generates only the access token for a user.
func (m *TokenMaker) GenerateAccessToken(userID uint, username, role string) (string, error) {
	return m.generatePASEToken(userID, username, role, AccessTokenExpiry)
}

func (m *TokenMaker) generatePASEToken(userID uint, username, role string, expiry time.Duration) (string, error) {
	claims := TokenClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Expiry:   m.now().Add(expiry),
	}

	token, err := paseto.NewV2().Encrypt(m.symmetricKey, claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates the given token string and checks for expiry and required roles.
func (m *TokenMaker) ValidateToken(tokenString string, requiredRoles ...string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(tokenString, m.symmetricKey, &claims, nil); err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	if m.now().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}

	// If no roles are required, any valid token is acceptable
	if len(requiredRoles) == 0 {
		return &claims, nil
	}
	for _, role := range requiredRoles {
		if claims.Role == role {
			return &claims, nil
		}
	}
	return nil, ErrInsufficientPermission
}
