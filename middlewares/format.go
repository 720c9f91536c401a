package middlewares

import (
	"HospitalBooking/apperrors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, log zerolog.Logger, message string, status int, err error) {
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	event.Err(err).
		Int("status", status).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.GetString("request_id")).
		Msg(message)
	c.JSON(status, gin.H{"error": message})
}

// RespondError maps an application error onto its HTTP status.
func RespondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)
	message := apperrors.MessageOf(err)

	if kind == apperrors.KindStorageConflict {
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
		c.JSON(status, gin.H{"error": message, "retryable": true})
		return
	}
	HttpError(c, log, message, status, err)
}

func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindConflict, apperrors.KindStorageConflict:
		return http.StatusConflict
	case apperrors.KindPermissionDenied:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
