package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务创建数
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_tasks_created_total",
			Help: "Total number of schedule tasks created",
		},
	)

	// 冲突检测
	conflictsDetected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_conflicts_detected",
			Help:    "Number of conflicts found per detection run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// 优化运行
	optimizerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_optimizer_runs_total",
			Help: "Total number of optimizer runs",
		},
		[]string{"outcome"}, // resolved, partial
	)

	optimizerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_optimizer_duration_seconds",
			Help:    "Optimizer run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	unresolvedConflicts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedule_unresolved_conflicts",
			Help: "Unresolved conflicts reported by the last optimizer run",
		},
	)

	// 改派操作
	reassignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_reassignments_total",
			Help: "Total number of reassignment attempts",
		},
		[]string{"outcome"}, // success, unavailable, conflict, forced, error
	)

	// 发件箱投递
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_events_published_total",
			Help: "Total number of outbox events delivered",
		},
		[]string{"type", "status"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 任务状态分布
	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schedule_tasks_by_status",
			Help: "Number of schedule tasks by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(tasksCreatedTotal)
	prometheus.MustRegister(conflictsDetected)
	prometheus.MustRegister(optimizerRunsTotal)
	prometheus.MustRegister(optimizerDuration)
	prometheus.MustRegister(unresolvedConflicts)
	prometheus.MustRegister(reassignmentsTotal)
	prometheus.MustRegister(eventsPublishedTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(tasksByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标，如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordConflictsDetected 记录一次冲突检测的结果数量
func RecordConflictsDetected(n int) {
	conflictsDetected.Observe(float64(n))
}

// RecordOptimizerRun 记录一次优化运行
func RecordOptimizerRun(unresolved int, seconds float64) {
	outcome := "resolved"
	if unresolved > 0 {
		outcome = "partial"
	}
	optimizerRunsTotal.WithLabelValues(outcome).Inc()
	optimizerDuration.Observe(seconds)
	unresolvedConflicts.Set(float64(unresolved))
}

// RecordReassignment 记录改派结果
func RecordReassignment(outcome string) {
	reassignmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordEventPublished 记录事件投递结果
func RecordEventPublished(eventType, status string) {
	eventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateTasksByStatus 更新任务状态分布指标
func UpdateTasksByStatus(status string, count float64) {
	tasksByStatus.WithLabelValues(status).Set(count)
}
