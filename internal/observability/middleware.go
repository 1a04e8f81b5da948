package observability

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "notifyapp/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling creates OpenTelemetry middleware that also
// records error attributes on failed requests
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		otelgin.Middleware(serviceName)(c)

		c.Next()

		// After the request is processed, annotate the span for failures
		if span := trace.SpanFromContext(c.Request.Context()); span != nil {
			statusCode := c.Writer.Status()
			if statusCode < 400 {
				return
			}

			severity := determineErrorSeverity(statusCode, c.Errors)

			var errorMsg string
			switch {
			case statusCode >= 500:
				errorMsg = "server error"
			default:
				errorMsg = "client error"
			}

			if len(c.Errors) > 0 {
				for _, err := range c.Errors {
					if appErr, ok := err.Err.(*contextutils.AppError); ok {
						errorMsg = appErr.Message
						severity = string(appErr.Severity)
						break
					}
					errorMsg = err.Error()
				}
			}

			span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
			span.SetStatus(codes.Error, errorMsg)

			span.SetAttributes(
				attribute.Int("http.status_code", statusCode),
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.path", c.Request.URL.Path),
				attribute.String("error.handler", c.HandlerName()),
				attribute.String("error.severity", severity),
			)

			if len(c.Errors) > 0 {
				for _, err := range c.Errors {
					if appErr, ok := err.Err.(*contextutils.AppError); ok {
						span.SetAttributes(
							attribute.String("error.code", string(appErr.Code)),
							attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
						)
						break
					}
				}
			}
		}
	}
}

// determineErrorSeverity determines the severity level based on status code and error types
func determineErrorSeverity(statusCode int, errors []*gin.Error) string {
	// Check for AppError types first
	for _, err := range errors {
		if appErr, ok := err.Err.(*contextutils.AppError); ok {
			return string(appErr.Severity)
		}
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
