package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) addMaintenance(t *testing.T, id, machineID, assignedTo string, status schedule.MaintenanceStatus, date time.Time) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.maintRepo.Save(context.Background(), &model.MaintenanceModel{
		ID:            id,
		MachineID:     machineID,
		Title:         "service " + id,
		Type:          string(schedule.MaintenancePreventive),
		Status:        string(status),
		ScheduledDate: date,
		AssignedTo:    assignedTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
}

func (f *fixture) maintenanceService(now time.Time) service.MaintenanceService {
	return service.NewMaintenanceService(f.maintRepo, f.machineRepo, f.audit, quietLogger(), func() time.Time { return now })
}

// TestMaintenanceService_EffectiveStatus 测试各个读取入口返回一致的有效状态
func TestMaintenanceService_EffectiveStatus(t *testing.T) {
	f := newFixture(t)
	f.addMaintenance(t, "past", "M1", "T1", schedule.MaintenanceScheduled, day.AddDate(0, 0, -2))
	f.addMaintenance(t, "future", "M1", "T1", schedule.MaintenanceScheduled, day.AddDate(0, 0, 3))
	f.addMaintenance(t, "done", "M1", "T1", schedule.MaintenanceCompleted, day.AddDate(0, 0, -5))
	svc := f.maintenanceService(day)
	ctx := context.Background()

	want := map[string]schedule.MaintenanceStatus{
		"past":   schedule.MaintenanceOverdue,
		"future": schedule.MaintenanceScheduled,
		"done":   schedule.MaintenanceCompleted,
	}

	list, total, err := svc.List(ctx, service.MaintenanceQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, r := range list {
		assert.Equal(t, want[r.ID], r.Status, "list %s", r.ID)
	}

	for id, status := range want {
		r, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, r.Status, "detail %s", id)
	}

	calendar, err := svc.Calendar(ctx, day.AddDate(0, 0, -7), day.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, calendar, 3)
	for _, r := range calendar {
		assert.Equal(t, want[r.ID], r.Status, "calendar %s", r.ID)
	}

	forMachine, _, err := svc.ForMachine(ctx, "M1", service.MaintenanceQuery{})
	require.NoError(t, err)
	require.Len(t, forMachine, 3)
	for _, r := range forMachine {
		assert.Equal(t, want[r.ID], r.Status, "machine %s", r.ID)
	}
}

// TestMaintenanceService_FilterByEffectiveStatus 测试按有效状态过滤
func TestMaintenanceService_FilterByEffectiveStatus(t *testing.T) {
	f := newFixture(t)
	f.addMaintenance(t, "past", "M1", "", schedule.MaintenanceScheduled, day.AddDate(0, 0, -2))
	f.addMaintenance(t, "future", "M2", "", schedule.MaintenanceScheduled, day.AddDate(0, 0, 3))
	svc := f.maintenanceService(day)
	ctx := context.Background()

	overdue, total, err := svc.List(ctx, service.MaintenanceQuery{Status: "overdue"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, overdue, 1)
	assert.Equal(t, "past", overdue[0].ID)

	scheduled, _, err := svc.List(ctx, service.MaintenanceQuery{Status: "scheduled"})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "future", scheduled[0].ID)

	_, _, err = svc.List(ctx, service.MaintenanceQuery{Status: "broken"})
	assert.ErrorIs(t, err, service.ErrValidation)

	// 时钟前移后同一条记录变为逾期
	later := f.maintenanceService(day.AddDate(0, 0, 10))
	overdue, _, err = later.List(ctx, service.MaintenanceQuery{Status: "overdue"})
	require.NoError(t, err)
	assert.Len(t, overdue, 2)

	_, _, err = svc.ForMachine(ctx, "M9", service.MaintenanceQuery{})
	assert.ErrorIs(t, err, schedule.ErrNotFound)

	_, err = svc.Calendar(ctx, day, day)
	assert.ErrorIs(t, err, schedule.ErrInvalidWindow)
}

// TestMaintenanceService_CreateAndComplete 测试创建和完成维护
func TestMaintenanceService_CreateAndComplete(t *testing.T) {
	f := newFixture(t)
	svc := f.maintenanceService(day)
	ctx := context.Background()

	_, err := svc.Create(ctx, dispatcher, &service.CreateMaintenanceRequest{
		MachineID: "M1", Title: "x", Type: "polishing", ScheduledDate: day,
	})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Create(ctx, dispatcher, &service.CreateMaintenanceRequest{
		MachineID: "M9", Title: "x", Type: "inspection", ScheduledDate: day,
	})
	assert.ErrorIs(t, err, schedule.ErrNotFound)

	_, err = svc.Create(ctx, operatorW1, &service.CreateMaintenanceRequest{
		MachineID: "M1", Title: "x", Type: "inspection", ScheduledDate: day,
	})
	assert.ErrorIs(t, err, service.ErrForbidden)

	record, err := svc.Create(ctx, dispatcher, &service.CreateMaintenanceRequest{
		MachineID:     "M1",
		Title:         "Spindle check",
		Type:          "Inspection",
		ScheduledDate: day.AddDate(0, 0, -1),
		AssignedTo:    "T1",
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.MaintenanceInspection, record.Type)
	assert.Equal(t, schedule.MaintenanceOverdue, record.Status)

	other := service.Actor{UserID: "T2", Role: schedule.RoleTechnician}
	_, err = svc.Complete(ctx, other, record.ID, &service.CompleteMaintenanceRequest{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	assigned := service.Actor{UserID: "T1", Role: schedule.RoleTechnician}
	done, err := svc.Complete(ctx, assigned, record.ID, &service.CompleteMaintenanceRequest{Notes: "bearing replaced"})
	require.NoError(t, err)
	assert.Equal(t, schedule.MaintenanceCompleted, done.Status)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, "bearing replaced", done.Notes)

	_, err = svc.Complete(ctx, dispatcher, record.ID, &service.CompleteMaintenanceRequest{})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}
