package container

import (
	"context"
	"fmt"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/cache"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/database"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/metrics"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// metricsInterval 指标收集间隔
const metricsInterval = 15 * time.Second

// Services 业务服务集合
type Services struct {
	Task        service.TaskService
	Schedule    *service.ScheduleService
	Machine     service.MachineService
	Worker      service.WorkerService
	Maintenance service.MaintenanceService
	Statistics  service.StatisticsService
	AuditLog    service.AuditLogService
}

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、缓存、事件发件箱、服务等
type Container struct {
	db           *gorm.DB
	redis        *redis.Client
	proposals    cache.Store
	hub          *websocket.Hub
	eventHandler *integration.EventHandler
	collector    *metrics.Collector
	validator    auth.TokenValidator
	services     Services
	logger       *logrus.Logger
	started      bool
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// 1. 初始化数据库(带重试机制,指数退避)
	db, err := database.ConnectWithRetry(cfg.Database, cfg.Database.MaxRetries, time.Second, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 方案缓存: 启用 Redis 时多实例共享,否则使用进程内存
	var redisClient *redis.Client
	var proposals cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisClient = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		store := cache.NewRedisStore(redisClient, cfg.Redis.Prefix)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := store.Ping(ctx)
		cancel()
		if err != nil {
			_ = redisClient.Close()
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		proposals = store
	}

	// 3. 事件发件箱: 配置了 Kafka 时投递到 Kafka,否则只写日志
	var publisher integration.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = integration.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		publisher = integration.NewLogPublisher(logger)
	}
	hub := websocket.NewHub(logger)
	eventHandler := integration.NewEventHandler(repository.NewEventRepository(db), publisher, hub, logger, integration.EventHandlerOptions{
		Workers:    cfg.Outbox.Workers,
		QueueSize:  cfg.Outbox.QueueSize,
		MaxRetries: cfg.Outbox.MaxRetries,
	})

	// 4. 初始化 Keycloak Token 验证器
	var validator auth.TokenValidator
	if cfg.Keycloak.Enabled {
		validator = auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer, cfg.Keycloak.JWKSURL)
	}

	// 5. 仓储与服务
	store := repository.NewScheduleStore(db)
	taskRepo := repository.NewTaskRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	services := Services{
		Task:     service.NewTaskService(store, taskRepo, historyRepo, machineRepo, workerRepo, auditLogSvc, eventHandler, logger),
		Schedule: service.NewScheduleService(store, historyRepo, proposals, auditLogSvc, eventHandler, logger, ScheduleOptions(cfg)),
		Machine:  service.NewMachineService(machineRepo, store, auditLogSvc, logger),
		Worker:   service.NewWorkerService(workerRepo, store, auditLogSvc, logger),
		Maintenance: service.NewMaintenanceService(
			repository.NewMaintenanceRepository(db), machineRepo, auditLogSvc, logger, nil),
		Statistics: service.NewStatisticsService(db, store),
		AuditLog:   auditLogSvc,
	}

	return &Container{
		db:           db,
		redis:        redisClient,
		proposals:    proposals,
		hub:          hub,
		eventHandler: eventHandler,
		collector:    metrics.NewCollector(db, taskRepo, metricsInterval),
		validator:    validator,
		services:     services,
		logger:       logger,
	}, nil
}

// ScheduleOptions 从配置构造排产服务参数
func ScheduleOptions(cfg *config.Config) service.ScheduleOptions {
	return service.ScheduleOptions{
		Optimizer:   cfg.Schedule.OptimizerConfig(),
		ProposalTTL: time.Duration(cfg.Schedule.ProposalTTLMinutes) * time.Minute,
	}
}

// Start 启动后台组件: 广播中心、发件箱 worker 和指标收集
func (c *Container) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true
	go c.hub.Run()
	c.eventHandler.Start(ctx)
	c.collector.Start()
}

// ApplyConfig 应用热更新的配置,目前只有排产参数支持热更新
func (c *Container) ApplyConfig(cfg *config.Config) {
	c.services.Schedule.UpdateConfig(ScheduleOptions(cfg))
	c.logger.WithFields(logrus.Fields{
		"horizon_days":                      cfg.Schedule.HorizonDays,
		"allow_cross_assignee_reassignment": cfg.Schedule.AllowCrossAssigneeReassignment,
		"min_displacement_minutes":          cfg.Schedule.MinDisplacementMinutes,
		"max_iterations":                    cfg.Schedule.MaxIterations,
	}).Info("schedule config applied")
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Redis 获取 Redis 客户端,未启用时为 nil
func (c *Container) Redis() *redis.Client {
	return c.redis
}

// Hub 获取 WebSocket 广播中心
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Validator 获取 Keycloak Token 验证器,未启用时为 nil
func (c *Container) Validator() auth.TokenValidator {
	return c.validator
}

// Services 获取业务服务
func (c *Container) Services() Services {
	return c.services
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Close 关闭容器,清理资源
// 先停止发件箱,再关闭广播中心和数据库
func (c *Container) Close() error {
	if c.started {
		c.collector.Stop()
	}
	c.eventHandler.Stop()
	c.hub.Stop()

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.WithError(err).Warn("failed to close redis client")
		}
	}
	return database.Close(c.db)
}
