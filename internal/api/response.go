package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/admin"
	"ltgsite/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// StatusOf maps a classified error to an HTTP status.
func StatusOf(err error) int {
	var confirm *admin.ConfirmationRequired
	if errors.As(err, &confirm) {
		return http.StatusConflict
	}
	switch errcode.KindOf(err) {
	case errcode.Validation:
		return http.StatusBadRequest
	case errcode.Configuration:
		return http.StatusServiceUnavailable
	case errcode.DataAccess, errcode.Upload, errcode.Function:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// RespondError writes err with the status StatusOf picks. A declined
// confirmation answers {"confirm": question} so the client can ask the user.
func RespondError(c *gin.Context, err error) {
	var confirm *admin.ConfirmationRequired
	if errors.As(err, &confirm) {
		c.JSON(http.StatusConflict, gin.H{"confirm": confirm.Question})
		return
	}
	status := StatusOf(err)
	msg := errcode.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	Error(c, status, msg)
}
