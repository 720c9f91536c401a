package middlewares

import (
	"HospitalBooking/models"
	"HospitalBooking/utils"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKey defines a custom context key type to store user details in the context.
type contextKey string

const actorKey contextKey = "actor"

// TokenAuthMiddleware validates the access token, taken from the accessToken
// query parameter or cookie, and stores the caller as an Actor in the request
// context.
func TokenAuthMiddleware(maker *utils.TokenMaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := utils.TokenFromRequest(c, utils.AccessTokenCookie)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing access token"})
			return
		}

		claims, err := maker.ValidateToken(token, models.RoleAdmin, models.RolePatient)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		actor := models.Actor{Kind: models.ActorKind(claims.Role), UserID: claims.UserID, Username: claims.Username}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RoleAuthMiddleware restricts access to users with the specified role.
func RoleAuthMiddleware(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ActorFromContext(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context"})
			return
		}

		if string(actor.Kind) != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient privileges"})
			return
		}

		c.Next()
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the authenticated caller from the context.
func ActorFromContext(ctx context.Context) (models.Actor, error) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	if !ok {
		return models.Actor{}, errors.New("actor not found in context")
	}
	return actor, nil
}
