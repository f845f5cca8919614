package schedule

import "context"

// TaskPatch 任务的部分更新,nil 字段保持不变
type TaskPatch struct {
	MachineID     *string
	AssigneeID    *string
	Window        *Window
	Status        *Status
	ActualMinutes *int
}

// Empty 判断补丁是否为空
func (p TaskPatch) Empty() bool {
	return p.MachineID == nil && p.AssigneeID == nil && p.Window == nil && p.Status == nil && p.ActualMinutes == nil
}

// Store 排产数据访问接口
type Store interface {
	// ListActiveTasks 默认排除已完成和已取消的任务
	ListActiveTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	// GetTask 任务不存在时返回 ErrNotFound
	GetTask(ctx context.Context, id string) (Task, error)
	MachineAvailability(ctx context.Context, machineID string, window Window) (Availability, error)
	AssigneeAvailability(ctx context.Context, assigneeID string, window Window) (Availability, error)
	// UpdateTask 版本号不等于 expectedVersion 时返回 ErrConflict
	UpdateTask(ctx context.Context, id string, patch TaskPatch, expectedVersion int64) (Task, error)
	ListMachines(ctx context.Context) ([]Machine, error)
	ListAssignees(ctx context.Context) ([]Assignee, error)
}
