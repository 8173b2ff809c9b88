package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
	apierrors "github.com/mixmint/mixmint-downloads/internal/api/shared/errors"
	"github.com/mixmint/mixmint-downloads/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(message))
}

// respondInternalError logs the cause and responds without details
func respondInternalError(c *gin.Context, err error, message string) {
	logger.ErrorCtx(c.Request.Context(), err,
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_id", middleware.UserID(c)),
	)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondDomainError maps a service error onto its HTTP status and error envelope
func respondDomainError(c *gin.Context, err error, internalMessage string) {
	if apiErr, ok := apierrors.FromDomain(err); ok {
		c.JSON(apiErr.Status(), apiErr)
		return
	}
	respondInternalError(c, err, internalMessage)
}
