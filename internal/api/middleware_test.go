package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/api"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequestIDMiddleware 测试请求 ID 透传和生成
func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		meta := service.RequestMetaFrom(c.Request.Context())
		c.String(http.StatusOK, meta.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(api.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(api.RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(api.RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())
}

// TestHandleError 测试领域错误到状态码的映射
func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	api.SetLogger(quiet)

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantRetryable bool
	}{
		{"not found", schedule.NotFoundError("task", "t1"), http.StatusNotFound, false},
		{"invalid window", schedule.ErrInvalidWindow, http.StatusBadRequest, false},
		{"empty patch", schedule.ErrEmptyPatch, http.StatusBadRequest, false},
		{"invalid transition", fmt.Errorf("%w: completed -> pending", schedule.ErrInvalidTransition), http.StatusBadRequest, false},
		{"validation", fmt.Errorf("%w: bad priority", service.ErrValidation), http.StatusBadRequest, false},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, false},
		{"unknown role", schedule.ErrUnknownRole, http.StatusForbidden, false},
		{"version conflict", fmt.Errorf("task t1: %w", schedule.ErrConflict), http.StatusConflict, true},
		{"unavailable", schedule.ErrResourceUnavailable, http.StatusConflict, false},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/x", func(c *gin.Context) { api.HandleError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode(t, w, nil)
			assert.Equal(t, tt.wantStatus, env.Code)
			assert.Equal(t, tt.wantRetryable, env.Retryable)
			assert.NotEmpty(t, env.Detail)
		})
	}
}

// TestHandleError_Unavailable 测试资源不可用时返回替代建议
func TestHandleError_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	window := schedule.Window{Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour)}
	err := &schedule.UnavailableError{
		Resource:    schedule.Resource{Kind: schedule.ResourceMachine, ID: "M2"},
		Window:      window,
		Suggestions: []string{"16:00-17:00 on machine M2"},
	}

	router := gin.New()
	router.GET("/x", func(c *gin.Context) { api.HandleError(c, err) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	var data struct {
		Resource    schedule.Resource `json:"resource"`
		Suggestions []string          `json:"suggestions"`
	}
	env := decode(t, w, &data)
	assert.Equal(t, "resource unavailable", env.Message)
	assert.Equal(t, "M2", data.Resource.ID)
	assert.Equal(t, []string{"16:00-17:00 on machine M2"}, data.Suggestions)
}

// TestErrorHandlerMiddleware 测试 c.Error 上报的错误被统一转换
func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.ErrorHandlerMiddleware())
	router.GET("/wrapped", func(c *gin.Context) {
		_ = c.Error(api.WrapError(errors.New("boom"), http.StatusBadGateway, "upstream failed"))
	})
	router.GET("/domain", func(c *gin.Context) {
		_ = c.Error(schedule.NotFoundError("machine", "M9"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wrapped", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "boom", decode(t, w, nil).Detail)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/domain", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestSecurityHeadersMiddleware 测试安全响应头
func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, production := range []bool{false, true} {
		router := gin.New()
		router.Use(api.SecurityHeadersMiddleware(production))
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, production, w.Header().Get("Strict-Transport-Security") != "")
	}
}

// TestRateLimitMiddleware 测试超出限流返回 429
func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.RateLimitMiddleware(1, 1))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
