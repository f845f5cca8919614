package repository

import (
	"context"
	"fmt"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// ScheduleStore 基于 gorm 的排产数据存储
type ScheduleStore struct {
	tasks    TaskRepository
	machines MachineRepository
	workers  WorkerRepository
}

var _ schedule.Store = (*ScheduleStore)(nil)

// NewScheduleStore 创建排产数据存储
func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{
		tasks:    NewTaskRepository(db),
		machines: NewMachineRepository(db),
		workers:  NewWorkerRepository(db),
	}
}

// ListActiveTasks 按过滤条件列出任务
func (s *ScheduleStore) ListActiveTasks(ctx context.Context, filter schedule.TaskFilter) ([]schedule.Task, error) {
	models, _, err := s.tasks.FindByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return toTasks(models), nil
}

// GetTask 获取任务
func (s *ScheduleStore) GetTask(ctx context.Context, id string) (schedule.Task, error) {
	m, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return schedule.Task{}, err
	}
	return m.ToDomain(), nil
}

// MachineAvailability 机器在窗口内的忙闲
func (s *ScheduleStore) MachineAvailability(ctx context.Context, machineID string, window schedule.Window) (schedule.Availability, error) {
	if err := window.Validate(); err != nil {
		return schedule.Availability{}, err
	}
	m, err := s.machines.FindByID(ctx, machineID)
	if err != nil {
		return schedule.Availability{}, err
	}
	tasks, err := s.ListActiveTasks(ctx, schedule.TaskFilter{MachineID: machineID, From: window.Start, To: window.End})
	if err != nil {
		return schedule.Availability{}, err
	}
	res := schedule.Resource{Kind: schedule.ResourceMachine, ID: machineID}
	return schedule.ComputeAvailability(res, window, schedule.MachineStatus(m.Status).Schedulable(), tasks, ""), nil
}

// AssigneeAvailability 工人在窗口内的忙闲
func (s *ScheduleStore) AssigneeAvailability(ctx context.Context, assigneeID string, window schedule.Window) (schedule.Availability, error) {
	if err := window.Validate(); err != nil {
		return schedule.Availability{}, err
	}
	w, err := s.workers.FindByID(ctx, assigneeID)
	if err != nil {
		return schedule.Availability{}, err
	}
	tasks, err := s.ListActiveTasks(ctx, schedule.TaskFilter{AssigneeID: assigneeID, From: window.Start, To: window.End})
	if err != nil {
		return schedule.Availability{}, err
	}
	res := schedule.Resource{Kind: schedule.ResourceAssignee, ID: assigneeID}
	return schedule.ComputeAvailability(res, window, w.Active, tasks, ""), nil
}

// UpdateTask 按版本号更新任务
func (s *ScheduleStore) UpdateTask(ctx context.Context, id string, patch schedule.TaskPatch, expectedVersion int64) (schedule.Task, error) {
	if patch.Empty() {
		return schedule.Task{}, schedule.ErrEmptyPatch
	}
	updates := make(map[string]interface{})
	if patch.MachineID != nil {
		updates["machine_id"] = *patch.MachineID
	}
	if patch.AssigneeID != nil {
		updates["assignee_id"] = *patch.AssigneeID
	}
	if patch.Window != nil {
		if err := patch.Window.Validate(); err != nil {
			return schedule.Task{}, err
		}
		updates["start_time"] = patch.Window.Start.UTC()
		updates["end_time"] = patch.Window.End.UTC()
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return schedule.Task{}, fmt.Errorf("%w: %q", schedule.ErrInvalidTransition, *patch.Status)
		}
		updates["status"] = string(*patch.Status)
	}
	if patch.ActualMinutes != nil {
		updates["actual_minutes"] = *patch.ActualMinutes
	}

	m, err := s.tasks.UpdateVersioned(ctx, id, updates, expectedVersion)
	if err != nil {
		return schedule.Task{}, err
	}
	return m.ToDomain(), nil
}

// ListMachines 列出全部机器
func (s *ScheduleStore) ListMachines(ctx context.Context) ([]schedule.Machine, error) {
	models, err := s.machines.FindAll(ctx, MachineFilter{})
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	machines := make([]schedule.Machine, 0, len(models))
	for _, m := range models {
		machines = append(machines, m.ToDomain())
	}
	return machines, nil
}

// ListAssignees 列出全部工人
func (s *ScheduleStore) ListAssignees(ctx context.Context) ([]schedule.Assignee, error) {
	models, err := s.workers.FindAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	assignees := make([]schedule.Assignee, 0, len(models))
	for _, w := range models {
		assignees = append(assignees, w.ToDomain())
	}
	return assignees, nil
}

func toTasks(models []*model.TaskModel) []schedule.Task {
	tasks := make([]schedule.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, m.ToDomain())
	}
	return tasks
}
