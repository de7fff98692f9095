package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/logger"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrNotFound = &apiError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "resource not found",
	}
	ErrUnauthorized = &apiError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: "unauthorized",
	}
	ErrTooManyRequests = &apiError{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests",
	}
)

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "invalid request body",
	}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError maps domain errors onto HTTP responses. Unrecognized
// errors are logged and reported as an opaque 500.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.Status, gin.H{"error": api})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, snapshotdomain.ErrNotFound):
		status, code, message = http.StatusNotFound, err.Error(), err.Error()
	case errors.Is(err, bookingdomain.ErrInvalidBooking),
		errors.Is(err, bookingdomain.ErrInvalidStatus),
		errors.Is(err, bookingdomain.ErrInvalidQuantity),
		errors.Is(err, bookingdomain.ErrInvalidWindow),
		errors.Is(err, telemetrydomain.ErrInvalidLocation),
		errors.Is(err, telemetrydomain.ErrInvalidReading),
		errors.Is(err, snapshotdomain.ErrInvalidSnapshot),
		errors.Is(err, snapshotdomain.ErrInvalidStatus):
		status, code, message = http.StatusBadRequest, err.Error(), err.Error()
	case errors.Is(err, snapshotdomain.ErrConflict),
		errors.Is(err, marketdomain.ErrNotPublishable):
		status, code, message = http.StatusConflict, err.Error(), err.Error()
	case errors.Is(err, marketdomain.ErrListingUnavailable):
		status, code, message = http.StatusBadGateway, err.Error(), err.Error()
	default:
		logger.FromContext(c.Request.Context()).Error("unhandled request error", zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{
		Status:  status,
		Code:    code,
		Message: message,
	}})
}
