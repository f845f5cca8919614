package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
	RoleTechnician Role = "technician"
)

// rolePrivilege 多角色时取权限最高者
var rolePrivilege = map[Role]int{
	RoleAdmin:      5,
	RoleManager:    4,
	RoleSupervisor: 3,
	RoleTechnician: 2,
	RoleOperator:   1,
}

// ParseRole 解析角色名,大小写不敏感
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rolePrivilege[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// HighestRole 从令牌角色列表中选出权限最高的已知角色
func HighestRole(roles []string) (Role, bool) {
	var best Role
	for _, s := range roles {
		r, err := ParseRole(s)
		if err != nil {
			continue
		}
		if best == "" || rolePrivilege[r] > rolePrivilege[best] {
			best = r
		}
	}
	return best, best != ""
}

// CanDispatch 是否可以调整排产 (优化、改派、应用方案)
func (r Role) CanDispatch() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSupervisor:
		return true
	case RoleOperator, RoleTechnician:
		return false
	}
	return false
}

// TaskFilter 任务查询条件
type TaskFilter struct {
	MachineID       string
	AssigneeID      string
	Statuses        []Status
	From            time.Time // 窗口与 [From, To) 相交
	To              time.Time
	IncludeTerminal bool
	Limit           int
	Offset          int
}

// FilterForRole 根据角色生成基础查询条件
func FilterForRole(role Role, userID string) (TaskFilter, error) {
	switch role {
	case RoleAdmin, RoleManager, RoleSupervisor:
		return TaskFilter{}, nil
	case RoleOperator:
		return TaskFilter{AssigneeID: userID}, nil
	case RoleTechnician:
		return TaskFilter{AssigneeID: userID}, nil
	}
	return TaskFilter{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Narrow 在角色条件上叠加请求参数,角色限定的字段不能被覆盖
func (f TaskFilter) Narrow(req TaskFilter) TaskFilter {
	out := req
	if f.AssigneeID != "" {
		out.AssigneeID = f.AssigneeID
	}
	if f.MachineID != "" {
		out.MachineID = f.MachineID
	}
	return out
}
