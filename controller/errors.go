package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/storage"
)

var (
	errInvalidID       = errors.New("invalid id")
	errUsernameMissing = errors.New("username is required")
	errForbidden       = errors.New("token does not belong to this user")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCreds):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrEmptyComment),
		errors.Is(err, service.ErrEmptyPost),
		errors.Is(err, storage.ErrTooLarge):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes the {error} body for err. Store failures are logged and
// hidden from the client.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID.Error()})
		return 0, false
	}
	return uint(id), true
}
