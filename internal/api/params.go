package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// currentActor 当前请求的操作人,未认证时写入 401
func currentActor(c *gin.Context) (service.Actor, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", "missing principal")
		return service.Actor{}, false
	}
	return service.Actor{UserID: p.UserID, Role: p.Role}, true
}

// pathID 读取并校验路径中的 ID,失败时错误交给 ErrorHandlerMiddleware 输出
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if err := utils.ValidateID(id); err != nil {
		_ = c.Error(WrapError(err, http.StatusBadRequest, "invalid "+name))
		return "", false
	}
	return id, true
}

// queryTime 解析 RFC3339 时间参数,缺省时返回零值
func queryTime(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", service.ErrValidation, key)
	}
	return t.UTC(), nil
}

// queryRange 解析 from/to 参数,两者都给出时必须构成合法窗口
func queryRange(c *gin.Context) (time.Time, time.Time, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() {
		if _, err := schedule.NewWindow(from, to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

// queryWindow 解析必填的 from/to 窗口
func queryWindow(c *gin.Context) (schedule.Window, error) {
	from, to, err := queryRange(c)
	if err != nil {
		return schedule.Window{}, err
	}
	if from.IsZero() || to.IsZero() {
		return schedule.Window{}, fmt.Errorf("%w: from and to are required", service.ErrValidation)
	}
	return schedule.Window{Start: from, End: to}, nil
}

// pageParams 分页参数
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// bindJSON 绑定请求体,失败时写入 400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}
