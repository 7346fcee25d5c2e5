package http

import (
	"errors"
	"net/http"

	"social-publisher/domain/apperror"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func statusFor(err error) int {
	var verrs validation.Errors
	var missing *apperror.CredentialMissingError
	var expired *apperror.CredentialExpiredError
	var refresh *apperror.RefreshFailedError
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrJobNotFound), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrJobNotClaimable):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUnknownProvider), errors.Is(err, usecase.ErrInvalidOAuthState), errors.Is(err, usecase.ErrNoManagedPages):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrConnectDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &expired), errors.As(err, &refresh):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError logs server-side failures and renders {"error": ...}. Validation
// failures carry the per-field details.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.GetLogger().WithField("path", c.FullPath()).WithField("error", err).Error("request failed")
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		c.JSON(status, gin.H{"error": "validation failed", "fields": verrs})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
