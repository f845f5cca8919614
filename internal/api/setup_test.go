package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/api"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/cache"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/database"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour int) string {
	return day.Add(time.Duration(hour) * time.Hour).Format(time.RFC3339)
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

// setupRouter 使用 SQLite 内存库和开发模式认证组装完整路由
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	api.SetLogger(log)

	db := setupTestDB(t)
	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	store := repository.NewScheduleStore(db)
	taskRepo := repository.NewTaskRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	now := func() time.Time { return day.Add(6 * time.Hour) }

	scheduleSvc := service.NewScheduleService(store, historyRepo, cache.NewMemoryStore(), auditLogSvc, nil, log, service.ScheduleOptions{
		Optimizer:   cfg.Schedule.OptimizerConfig(),
		ProposalTTL: time.Hour,
	})
	scheduleSvc.SetClock(now)

	return api.SetupRoutesWithConfig(api.RouterDeps{
		Config:      cfg,
		DB:          db,
		Task:        service.NewTaskService(store, taskRepo, historyRepo, machineRepo, workerRepo, auditLogSvc, nil, log),
		Schedule:    scheduleSvc,
		Machine:     service.NewMachineService(machineRepo, store, auditLogSvc, log),
		Worker:      service.NewWorkerService(workerRepo, store, auditLogSvc, log),
		Maintenance: service.NewMaintenanceService(repository.NewMaintenanceRepository(db), machineRepo, auditLogSvc, log, now),
		Statistics:  service.NewStatisticsService(db, store),
	})
}

// doRequest 发送请求,role 为空时使用默认的管理员身份
func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, user string, role schedule.Role) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if role != "" {
		req.Header.Set("X-User-Role", string(role))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// envelope 统一响应的通用解析
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Detail    string          `json:"detail"`
	Retryable bool            `json:"retryable"`
	Data      json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

// seed 通过接口创建机器 M1、M2 和工人 W1、W2
func seed(t *testing.T, router http.Handler) {
	t.Helper()
	for _, id := range []string{"M1", "M2"} {
		w := doRequest(t, router, http.MethodPost, "/api/v1/machines", map[string]interface{}{
			"id": id, "name": "CNC " + id, "type": "cnc", "capacity": 10,
		}, "", "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	for _, id := range []string{"W1", "W2"} {
		w := doRequest(t, router, http.MethodPost, "/api/v1/workers", map[string]interface{}{
			"id": id, "name": "Worker " + id, "skills": []string{"cnc"},
		}, "", "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

// createTask 通过接口创建任务并返回任务 ID
func createTask(t *testing.T, router http.Handler, title, machineID, assigneeID string, start, end int, priority string) string {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"title":       title,
		"machine_id":  machineID,
		"assignee_id": assigneeID,
		"start":       at(start),
		"end":         at(end),
		"priority":    priority,
	}, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task schedule.Task
	decode(t, w, &task)
	require.NotEmpty(t, task.ID)
	return task.ID
}

func taskPath(id string, suffix string) string {
	return fmt.Sprintf("/api/v1/tasks/%s%s", id, suffix)
}
