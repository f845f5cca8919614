package api

import (
	"errors"
	"net/http"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
// 处理函数通过 c.Error 上报的错误在这里统一转换为响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		writeError(c, errorResponse(err))
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// unavailableData 资源不可用时返回给调用方的信息
type unavailableData struct {
	Resource    schedule.Resource       `json:"resource"`
	Window      schedule.Window         `json:"window"`
	Busy        []schedule.BusyInterval `json:"busy,omitempty"`
	Suggestions []string                `json:"suggestions"`
}

// errorResponse 领域错误到 HTTP 响应的映射,并标记调用方能否重新读取后重试
func errorResponse(err error) ErrorResponse {
	resp := statusResponse(err)
	resp.Retryable = service.IsRetryable(err)
	return resp
}

func statusResponse(err error) ErrorResponse {
	var unavailable *schedule.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		suggestions := unavailable.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		return ErrorResponse{
			Code:    http.StatusConflict,
			Message: "resource unavailable",
			Detail:  err.Error(),
			Data: unavailableData{
				Resource:    unavailable.Resource,
				Window:      unavailable.Window,
				Busy:        unavailable.Busy,
				Suggestions: suggestions,
			},
		}
	case errors.Is(err, schedule.ErrResourceUnavailable):
		return ErrorResponse{Code: http.StatusConflict, Message: "resource unavailable", Detail: err.Error()}
	case errors.Is(err, schedule.ErrConflict):
		return ErrorResponse{Code: http.StatusConflict, Message: "version conflict", Detail: err.Error()}
	case errors.Is(err, schedule.ErrNotFound):
		return ErrorResponse{Code: http.StatusNotFound, Message: "not found", Detail: err.Error()}
	case errors.Is(err, schedule.ErrInvalidWindow):
		return ErrorResponse{Code: http.StatusBadRequest, Message: "invalid window", Detail: err.Error()}
	case errors.Is(err, schedule.ErrEmptyPatch):
		return ErrorResponse{Code: http.StatusBadRequest, Message: "invalid request", Detail: err.Error()}
	case errors.Is(err, schedule.ErrInvalidTransition):
		return ErrorResponse{Code: http.StatusBadRequest, Message: "invalid transition", Detail: err.Error()}
	case errors.Is(err, service.ErrValidation):
		return ErrorResponse{Code: http.StatusBadRequest, Message: "invalid request", Detail: err.Error()}
	case errors.Is(err, service.ErrForbidden), errors.Is(err, schedule.ErrUnknownRole):
		return ErrorResponse{Code: http.StatusForbidden, Message: "forbidden", Detail: err.Error()}
	}
	return ErrorResponse{Code: http.StatusInternalServerError, Message: "internal server error", Detail: err.Error()}
}

// HandleError 将服务层错误写入响应
func HandleError(c *gin.Context, err error) {
	resp := errorResponse(err)
	if resp.Code >= http.StatusInternalServerError {
		GetLogger().WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
	}
	writeError(c, resp)
}
