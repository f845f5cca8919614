package fixtures_test

import (
	"context"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/database"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/fixtures"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServices(t *testing.T) (fixtures.Services, schedule.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := repository.NewScheduleStore(db)
	machineRepo := repository.NewMachineRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	return fixtures.Services{
		Machine: service.NewMachineService(machineRepo, store, audit, log),
		Worker:  service.NewWorkerService(workerRepo, store, audit, log),
		Task: service.NewTaskService(store, repository.NewTaskRepository(db), repository.NewStateHistoryRepository(db),
			machineRepo, workerRepo, audit, nil, log),
		Maintenance: service.NewMaintenanceService(repository.NewMaintenanceRepository(db), machineRepo, audit, log, nil),
	}, store
}

// TestLoad 测试解析 YAML 演示数据
func TestLoad(t *testing.T) {
	fx, err := fixtures.Load("testdata/factory.yaml")
	require.NoError(t, err)

	require.Len(t, fx.Machines, 2)
	assert.Equal(t, "maintenance", fx.Machines[1].Status)
	require.Len(t, fx.Workers, 2)
	require.NotNil(t, fx.Workers[1].Active)
	assert.False(t, *fx.Workers[1].Active)
	assert.Nil(t, fx.Workers[0].Active)
	require.Len(t, fx.Tasks, 2)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), fx.Tasks[0].Start.UTC())
	assert.Equal(t, 120, fx.Tasks[1].EstimatedMinutes)
	require.Len(t, fx.Maintenance, 1)
	assert.Equal(t, "T1", fx.Maintenance[0].AssignedTo)

	_, err = fixtures.Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = fixtures.Parse([]byte("machines: {not: a list"))
	assert.Error(t, err)
}

// TestRebase 测试以 base 为原点平移时间
func TestRebase(t *testing.T) {
	fx, err := fixtures.Load("testdata/factory.yaml")
	require.NoError(t, err)

	target := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	fx.Rebase(target)

	assert.Equal(t, target, fx.Base)
	assert.Equal(t, target.Add(9*time.Hour), fx.Tasks[0].Start.UTC())
	assert.Equal(t, target.Add(11*time.Hour), fx.Tasks[0].End.UTC())
	assert.Equal(t, target.Add(32*time.Hour), fx.Maintenance[0].ScheduledDate.UTC())

	empty := &fixtures.Fixtures{Tasks: []fixtures.Task{{Start: target, End: target.Add(time.Hour)}}}
	empty.Rebase(target.Add(48 * time.Hour))
	assert.Equal(t, target, empty.Tasks[0].Start)
}

// TestApply 测试通过服务层写入演示数据
func TestApply(t *testing.T) {
	svcs, store := setupServices(t)
	ctx := context.Background()

	fx, err := fixtures.Load("testdata/factory.yaml")
	require.NoError(t, err)

	sum, err := fixtures.Apply(ctx, fx, svcs, service.SystemActor, nil)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Summary{Machines: 2, Workers: 2, Tasks: 2, Maintenance: 1}, sum)

	tasks, err := store.ListActiveTasks(ctx, schedule.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Len(t, schedule.DetectConflicts(tasks), 1)

	w2, err := svcs.Worker.Get(ctx, "W2")
	require.NoError(t, err)
	assert.False(t, w2.Active)

	// 再次写入时跳过已存在的机器和工人
	sum, err = fixtures.Apply(ctx, &fixtures.Fixtures{Machines: fx.Machines, Workers: fx.Workers}, svcs, service.SystemActor, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Skipped)
	assert.Zero(t, sum.Machines)
}

// TestApply_InvalidTask 测试非法任务中止写入
func TestApply_InvalidTask(t *testing.T) {
	svcs, _ := setupServices(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	fx := &fixtures.Fixtures{
		Tasks: []fixtures.Task{{Title: "backwards", Start: start, End: start.Add(-time.Hour)}},
	}

	_, err := fixtures.Apply(context.Background(), fx, svcs, service.SystemActor, nil)
	assert.ErrorIs(t, err, schedule.ErrInvalidWindow)
}
