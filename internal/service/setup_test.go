package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/cache"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/database"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	dispatcher = service.Actor{UserID: "sup-1", Role: schedule.RoleSupervisor}
	operatorW1 = service.Actor{UserID: "W1", Role: schedule.RoleOperator}
)

// day 测试使用的日期
var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// recordingSink 记录发送的事件
type recordingSink struct {
	mu     sync.Mutex
	events []integration.Event
}

func (s *recordingSink) Handle(_ context.Context, evt integration.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) types() []integration.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]integration.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// conflictingStore 前 failures 次 UpdateTask 返回版本冲突
type conflictingStore struct {
	schedule.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *conflictingStore) UpdateTask(ctx context.Context, id string, patch schedule.TaskPatch, expectedVersion int64) (schedule.Task, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return schedule.Task{}, schedule.ErrConflict
	}
	return s.Store.UpdateTask(ctx, id, patch, expectedVersion)
}

type fixture struct {
	db          *gorm.DB
	store       *repository.ScheduleStore
	taskRepo    repository.TaskRepository
	historyRepo repository.StateHistoryRepository
	machineRepo repository.MachineRepository
	workerRepo  repository.WorkerRepository
	maintRepo   repository.MaintenanceRepository
	audit       service.AuditLogService
	sink        *recordingSink
	proposals   *cache.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:          db,
		store:       repository.NewScheduleStore(db),
		taskRepo:    repository.NewTaskRepository(db),
		historyRepo: repository.NewStateHistoryRepository(db),
		machineRepo: repository.NewMachineRepository(db),
		workerRepo:  repository.NewWorkerRepository(db),
		maintRepo:   repository.NewMaintenanceRepository(db),
		audit:       service.NewAuditLogService(repository.NewAuditLogRepository(db)),
		sink:        &recordingSink{},
		proposals:   cache.NewMemoryStore(),
	}
	f.seedResources(t)
	return f
}

func (f *fixture) seedResources(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	machines := []*model.MachineModel{
		{ID: "M1", Name: "CNC 1", Type: "cnc", Capacity: 10, Status: "operational"},
		{ID: "M2", Name: "CNC 2", Type: "cnc", Capacity: 10, Status: "operational"},
		{ID: "M3", Name: "Lathe", Type: "lathe", Capacity: 5, Status: "maintenance"},
	}
	for _, m := range machines {
		m.CreatedAt, m.UpdatedAt = now, now
		require.NoError(t, f.machineRepo.Save(ctx, m))
	}
	workers := []*model.WorkerModel{
		{ID: "W1", Name: "Ada", Skills: "cnc", Active: true},
		{ID: "W2", Name: "Bo", Skills: "cnc,lathe", Active: true},
		{ID: "W3", Name: "Cy", Skills: "cnc", Active: false},
	}
	for _, w := range workers {
		w.CreatedAt, w.UpdatedAt = now, now
		require.NoError(t, f.workerRepo.Save(ctx, w))
	}
}

func (f *fixture) addTask(t *testing.T, id, machineID, assigneeID string, start, end int, priority schedule.Priority) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.taskRepo.Create(context.Background(), &model.TaskModel{
		ID:         id,
		Title:      "task " + id,
		MachineID:  machineID,
		AssigneeID: assigneeID,
		StartTime:  at(start),
		EndTime:    at(end),
		Status:     string(schedule.StatusScheduled),
		Priority:   string(priority),
		CreatedBy:  "seed",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func (f *fixture) scheduleService(store schedule.Store) *service.ScheduleService {
	if store == nil {
		store = f.store
	}
	svc := service.NewScheduleService(store, f.historyRepo, f.proposals, f.audit, f.sink, quietLogger(), service.ScheduleOptions{
		Optimizer:   schedule.DefaultConfig(),
		ProposalTTL: time.Hour,
	})
	svc.SetClock(func() time.Time { return at(6) })
	return svc
}

func (f *fixture) taskService() service.TaskService {
	return service.NewTaskService(f.store, f.taskRepo, f.historyRepo, f.machineRepo, f.workerRepo, f.audit, f.sink, quietLogger())
}
