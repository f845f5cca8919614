package service_test

import (
	"context"
	"testing"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskService_Create 测试创建任务
func TestTaskService_Create(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, dispatcher, &service.CreateTaskRequest{
		Title:      "Drill housing",
		MachineID:  "M1",
		AssigneeID: "W1",
		Start:      at(8),
		End:        at(10),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, schedule.StatusScheduled, task.Status)
	assert.Equal(t, schedule.PriorityMedium, task.Priority)
	assert.Equal(t, int64(1), task.Version)
	assert.Equal(t, []integration.EventType{integration.EventTaskCreated}, f.sink.types())

	history, err := svc.History(ctx, dispatcher, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "create", history[0].Action)
}

// TestTaskService_CreateValidation 测试创建任务的参数校验
func TestTaskService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   service.Actor
		req     service.CreateTaskRequest
		wantErr error
	}{
		{
			name:    "empty window",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "x", Start: at(10), End: at(10)},
			wantErr: schedule.ErrInvalidWindow,
		},
		{
			name:    "reversed window",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "x", Start: at(11), End: at(10)},
			wantErr: schedule.ErrInvalidWindow,
		},
		{
			name:    "blank title",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "  ", Start: at(9), End: at(10)},
			wantErr: service.ErrValidation,
		},
		{
			name:    "script in title",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "<script>alert(1)</script>", Start: at(9), End: at(10)},
			wantErr: service.ErrValidation,
		},
		{
			name:    "unknown priority",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "x", Start: at(9), End: at(10), Priority: "urgent"},
			wantErr: service.ErrValidation,
		},
		{
			name:    "unknown machine",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "x", Start: at(9), End: at(10), MachineID: "M9"},
			wantErr: schedule.ErrNotFound,
		},
		{
			name:    "unknown worker",
			actor:   dispatcher,
			req:     service.CreateTaskRequest{Title: "x", Start: at(9), End: at(10), AssigneeID: "W9"},
			wantErr: schedule.ErrNotFound,
		},
		{
			name:    "operator cannot create",
			actor:   operatorW1,
			req:     service.CreateTaskRequest{Title: "x", Start: at(9), End: at(10)},
			wantErr: service.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Create(ctx, tt.actor, &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestTaskService_ListByRole 测试按角色过滤任务列表
func TestTaskService_ListByRole(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "A", "M1", "W1", 9, 10, schedule.PriorityMedium)
	f.addTask(t, "B", "M2", "W2", 9, 10, schedule.PriorityMedium)
	f.addTask(t, "C", "M2", "W1", 11, 12, schedule.PriorityMedium)
	svc := f.taskService()
	ctx := context.Background()

	tasks, total, err := svc.List(ctx, dispatcher, service.TaskQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, tasks, 3)

	tasks, total, err = svc.List(ctx, operatorW1, service.TaskQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, task := range tasks {
		assert.Equal(t, "W1", task.AssigneeID)
	}

	// 请求的过滤条件不能越过角色限制
	tasks, _, err = svc.List(ctx, operatorW1, service.TaskQuery{AssigneeID: "W2"})
	require.NoError(t, err)
	for _, task := range tasks {
		assert.Equal(t, "W1", task.AssigneeID)
	}

	tasks, total, err = svc.List(ctx, dispatcher, service.TaskQuery{MachineID: "M2", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "B", tasks[0].ID)

	_, _, err = svc.List(ctx, service.Actor{UserID: "x", Role: "janitor"}, service.TaskQuery{})
	assert.ErrorIs(t, err, schedule.ErrUnknownRole)

	_, err = svc.Get(ctx, operatorW1, "B")
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

// TestTaskService_TransitionStatus 测试任务状态流转
func TestTaskService_TransitionStatus(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "A", "M1", "W1", 9, 10, schedule.PriorityMedium)
	svc := f.taskService()
	ctx := context.Background()

	task, err := svc.TransitionStatus(ctx, operatorW1, "A", &service.StatusRequest{
		Status:          schedule.StatusInProgress,
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusInProgress, task.Status)
	assert.Equal(t, int64(2), task.Version)

	// 过期版本
	_, err = svc.TransitionStatus(ctx, operatorW1, "A", &service.StatusRequest{
		Status:          schedule.StatusCompleted,
		ExpectedVersion: 1,
	})
	assert.ErrorIs(t, err, schedule.ErrConflict)

	minutes := 55
	task, err = svc.TransitionStatus(ctx, operatorW1, "A", &service.StatusRequest{
		Status:          schedule.StatusCompleted,
		ExpectedVersion: 2,
		ActualMinutes:   &minutes,
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, task.Status)
	assert.Equal(t, 55, task.ActualMinutes)

	// 终态不能再流转
	_, err = svc.TransitionStatus(ctx, dispatcher, "A", &service.StatusRequest{
		Status:          schedule.StatusScheduled,
		ExpectedVersion: 3,
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	history, err := svc.History(ctx, dispatcher, "A")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "scheduled", history[0].FromState)
	assert.Equal(t, "completed", history[1].ToState)
}

// TestTaskService_Cancel 测试取消任务
func TestTaskService_Cancel(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "A", "M1", "W1", 9, 10, schedule.PriorityMedium)
	svc := f.taskService()
	ctx := context.Background()

	_, err := svc.Cancel(ctx, operatorW1, "A", &service.CancelRequest{ExpectedVersion: 1})
	assert.ErrorIs(t, err, service.ErrForbidden)

	task, err := svc.Cancel(ctx, dispatcher, "A", &service.CancelRequest{ExpectedVersion: 1, Reason: "order withdrawn"})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCancelled, task.Status)
	assert.Contains(t, f.sink.types(), integration.EventTaskCancelled)

	// 已取消的任务不再占用机器
	tasks, _, err := svc.List(ctx, dispatcher, service.TaskQuery{MachineID: "M1"})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, _, err = svc.List(ctx, dispatcher, service.TaskQuery{MachineID: "M1", IncludeTerminal: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

// TestParseStatuses 测试状态列表解析
func TestParseStatuses(t *testing.T) {
	statuses, err := service.ParseStatuses("scheduled, in_progress")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Status{schedule.StatusScheduled, schedule.StatusInProgress}, statuses)

	statuses, err = service.ParseStatuses("")
	require.NoError(t, err)
	assert.Empty(t, statuses)

	_, err = service.ParseStatuses("scheduled,done")
	assert.ErrorIs(t, err, service.ErrValidation)
}
