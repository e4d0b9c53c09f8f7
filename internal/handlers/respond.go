package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError writes err as JSON with the status of its kind. Errors that
// are not application errors become a generic 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_error",
			Code:      apperrors.CodePersistenceFailure,
			Message:   "An unexpected error occurred",
			RequestID: middleware.GetRequestID(c),
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"code":       appErr.Code,
			"request_id": middleware.GetRequestID(c),
		}).Error("Request failed")
	}

	message := appErr.Message
	if appErr.Kind == apperrors.KindPersistence {
		// driver errors stay in the logs
		message = "An internal error occurred"
	}

	c.JSON(status, ErrorResponse{
		Error:     string(appErr.Kind),
		Code:      appErr.Code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     string(apperrors.KindValidation),
		Code:      apperrors.CodeInvalidRequest,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// callerFrom builds the explicit caller identity from the auth middleware's
// context value. ok is false on unauthenticated routes.
func callerFrom(c *gin.Context) (services.Caller, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{UserID: userCtx.UserID, Email: userCtx.Email, Roles: userCtx.Roles}, true
}

func requireCaller(c *gin.Context, logger *logrus.Logger) (services.Caller, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		respondError(c, logger, apperrors.Unauthenticated("authentication required"))
		return services.Caller{}, false
	}
	return caller, true
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: middleware.GetRequestID(c),
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
