package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/utils"
)

var (
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("validation failed")
	// ErrForbidden 当前角色无权执行该操作
	ErrForbidden = errors.New("forbidden")
)

// Actor 发起操作的用户
type Actor struct {
	UserID string
	Role   schedule.Role
}

// SystemActor 内部任务使用的系统用户
var SystemActor = Actor{UserID: "system", Role: schedule.RoleAdmin}

// RequestMeta 审计需要的请求信息
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta 把请求信息放入 context
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom 读取请求信息
func RequestMetaFrom(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}

// EventSink 排产事件接收方
type EventSink interface {
	Handle(ctx context.Context, evt integration.Event) error
}

// requireDispatch 只有可调度角色能修改排产
func requireDispatch(actor Actor) error {
	if !actor.Role.CanDispatch() {
		return ErrForbidden
	}
	return nil
}

// validateIdentity 校验调用方指定的 ID (可为空) 和名称
func validateIdentity(id, name string) error {
	if id != "" {
		if err := utils.ValidateID(id); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if err := utils.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
