package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// 错误定义
var (
	// ErrNotFound 任务、机器或工人不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidWindow 时间窗口非法 (end <= start)
	ErrInvalidWindow = errors.New("invalid window: end must be after start")
	// ErrResourceUnavailable 目标资源在目标窗口内没有空闲
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrConflict 乐观锁冲突,调用方应重新读取后重试
	ErrConflict = errors.New("version conflict")
	// ErrInvalidTransition 非法状态转换
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownRole 未知角色
	ErrUnknownRole = errors.New("unknown role")
	// ErrEmptyPatch 更新没有包含任何字段
	ErrEmptyPatch = errors.New("empty task patch")
)

// UnavailableError 资源不可用错误,附带优化器给出的替代建议
type UnavailableError struct {
	Resource    Resource
	Window      Window
	Reason      string
	Busy        []BusyInterval
	Suggestions []string
}

func (e *UnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s in %s", ErrResourceUnavailable.Error(), e.Resource, e.Window)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *UnavailableError) Unwrap() error {
	return ErrResourceUnavailable
}

// NotFoundError 带资源信息的 NotFound
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
