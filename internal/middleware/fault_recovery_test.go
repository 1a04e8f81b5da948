package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	faults []error
}

func (r *recordingReporter) ReportFault(err error) {
	r.faults = append(r.faults, err)
}

func TestFaultRecoveryMiddleware_PanicAnswersThenReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporter := &recordingReporter{}

	router := gin.New()
	router.Use(FaultRecoveryMiddleware(observability.Fallback(), reporter))
	router.GET("/boom", func(c *gin.Context) {
		panic("something broke")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(contextutils.ErrorCodeInternalError))

	require.Len(t, reporter.faults, 1)
	assert.Equal(t, contextutils.ErrorCodeInternalError, contextutils.GetErrorCode(reporter.faults[0]))
}

func TestFaultRecoveryMiddleware_CleanRequestPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporter := &recordingReporter{}

	router := gin.New()
	router.Use(FaultRecoveryMiddleware(observability.Fallback(), reporter))
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, reporter.faults)
}

func TestFaultRecoveryMiddleware_NilReporter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(FaultRecoveryMiddleware(observability.Fallback(), nil))
	router.GET("/boom", func(c *gin.Context) {
		panic("no reporter wired")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     contextutils.ErrorCode
		expected int
	}{
		{"invalid input", contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{"timeout", contextutils.ErrorCodeTimeout, http.StatusRequestTimeout},
		{"database connection", contextutils.ErrorCodeDatabaseConnection, http.StatusServiceUnavailable},
		{"transport unavailable", contextutils.ErrorCodeTransportUnavailable, http.StatusServiceUnavailable},
		{"internal", contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
		{"bind failure", contextutils.ErrorCodeBindFailure, http.StatusInternalServerError},
		{"unknown", contextutils.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}
