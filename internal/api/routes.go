package api

import (
	"net/http"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// devUserID 未启用 Keycloak 时的默认用户
const devUserID = "system"

// RouterDeps 路由依赖
type RouterDeps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client       // 可选
	Hub         *websocket.Hub      // 可选,nil 时不注册 /ws/schedule 和 /sse/schedule
	Validator   auth.TokenValidator // nil 时使用开发模式认证
	Task        service.TaskService
	Schedule    *service.ScheduleService
	Machine     service.MachineService
	Worker      service.WorkerService
	Maintenance service.MaintenanceService
	Statistics  service.StatisticsService
}

// SetupRoutesWithConfig 配置中间件和全部路由
func SetupRoutesWithConfig(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing.ServiceName))
	}
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(ErrorHandlerMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	// 健康检查
	healthController := NewHealthController(deps.DB, deps.Redis)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if deps.Hub != nil {
		router.GET("/ws/schedule", websocket.WebSocketHandler(deps.Hub, deps.Validator, cfg.CORS.AllowedOrigins))
		router.GET("/sse/schedule", SSEHandler(deps.Hub, deps.Validator))
	}

	taskController := NewTaskController(deps.Task, deps.Schedule)
	scheduleController := NewScheduleController(deps.Schedule, deps.Statistics)
	machineController := NewMachineController(deps.Machine, deps.Maintenance)
	workerController := NewWorkerController(deps.Worker)
	maintenanceController := NewMaintenanceController(deps.Maintenance)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if deps.Validator != nil {
		v1.Use(auth.KeycloakAuthMiddleware(deps.Validator))
	} else {
		v1.Use(auth.DevAuthMiddleware(devUserID, schedule.RoleAdmin))
	}
	// 写排产的接口只对调度角色开放,服务层仍会再次校验
	dispatch := auth.RequireDispatch()
	{
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskController.Create)
			tasks.GET("", taskController.List)
			tasks.GET("/:id", taskController.Get)
			tasks.PATCH("/:id/status", taskController.UpdateStatus)
			tasks.POST("/:id/cancel", taskController.Cancel)
			tasks.POST("/:id/reassign", taskController.Reassign)
			tasks.GET("/:id/history", taskController.History)
		}

		sched := v1.Group("/schedule")
		{
			sched.GET("/conflicts", scheduleController.Conflicts)
			sched.POST("/conflicts", scheduleController.Detect)
			sched.POST("/optimize", dispatch, scheduleController.Optimize)
			sched.GET("/proposals/:id", scheduleController.GetProposal)
			sched.POST("/proposals/:id/apply", dispatch, scheduleController.ApplyProposal)
			sched.DELETE("/proposals/:id", dispatch, scheduleController.DiscardProposal)
			sched.GET("/stats", scheduleController.Stats)
		}

		machines := v1.Group("/machines")
		{
			machines.POST("", dispatch, machineController.Create)
			machines.GET("", machineController.List)
			machines.GET("/:id", machineController.Get)
			machines.PATCH("/:id/status", dispatch, machineController.UpdateStatus)
			machines.GET("/:id/availability", machineController.Availability)
			machines.GET("/:id/maintenance", machineController.Maintenance)
		}

		workers := v1.Group("/workers")
		{
			workers.POST("", dispatch, workerController.Create)
			workers.GET("", workerController.List)
			workers.GET("/:id", workerController.Get)
			workers.GET("/:id/availability", workerController.Availability)
		}

		maintenance := v1.Group("/maintenance")
		{
			// 固定路径必须在 /:id 之前注册
			maintenance.GET("/calendar", maintenanceController.Calendar)
			maintenance.GET("", maintenanceController.List)
			maintenance.POST("", maintenanceController.Create)
			maintenance.GET("/:id", maintenanceController.Get)
			maintenance.POST("/:id/complete", maintenanceController.Complete)
		}
	}

	// 未匹配的路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
