// Package middleware provides gin middleware shared by the HTTP surface of
// the notification relay service.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// FaultReporter receives faults that escaped a request handler
type FaultReporter interface {
	ReportFault(err error)
}

// FaultRecoveryMiddleware converts a handler panic into a 500 response for
// the in-flight request and then reports the fault, so an uncaught fault
// takes the same shutdown path as a termination signal instead of killing
// the process mid-request.
func FaultRecoveryMiddleware(logger *observability.Logger, reporter FaultReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := string(debug.Stack())
				logger.Error(c.Request.Context(), "Panic recovered in request handler", nil, map[string]interface{}{
					"panic":       fmt.Sprintf("%v", r),
					"stack_trace": stackTrace,
					"http.method": c.Request.Method,
					"http.path":   c.Request.URL.Path,
				})

				var panicErr error
				if e, ok := r.(error); ok {
					panicErr = e
				} else {
					panicErr = contextutils.ErrorWithContextf("panic: %v", r)
				}

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)

				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				HandleAppError(c, appErr)
				c.Abort()

				if reporter != nil {
					reporter.ReportFault(appErr)
				}
			}
		}()

		c.Next()
	}
}

// HandleAppError handles any AppError and sends appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*contextutils.AppError); ok {
		StandardizeAppError(c, appErr)
	} else {
		StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	statusCode := mapErrorCodeToHTTPStatus(err.Code)

	errorJSON := err.ToJSON()
	errorJSON["retryable"] = contextutils.IsRetryable(err)

	c.JSON(statusCode, errorJSON)
}

// StandardizeHTTPError creates consistent HTTP error responses with structured error information
func StandardizeHTTPError(c *gin.Context, _ int, message, details string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		message,
		details,
	)

	StandardizeAppError(c, appErr)
}

// ServiceUnavailable sends a 503 Service Unavailable error with a standardized payload
func ServiceUnavailable(c *gin.Context, msg string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeServiceUnavailable,
		contextutils.SeverityError,
		msg,
		"",
	)
	StandardizeAppError(c, appErr)
}

// mapErrorCodeToHTTPStatus maps AppError codes to appropriate HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput:
		return http.StatusBadRequest

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection,
		contextutils.ErrorCodeTransportUnavailable:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeInternalError, contextutils.ErrorCodeDatabaseQuery,
		contextutils.ErrorCodeStartupFailure, contextutils.ErrorCodeBindFailure,
		contextutils.ErrorCodeTeardownFailure, contextutils.ErrorCodeDuplicateStart:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
