package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置,未设置的值使用默认值
func GetPoolConfig(cfg config.DatabaseConfig) *PoolConfig {
	pool := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 10
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 100
	}
	if pool.ConnMaxLifetime == 0 {
		pool.ConnMaxLifetime = 3600 // 1 小时
	}
	if pool.ConnMaxIdleTime == 0 {
		pool.ConnMaxIdleTime = 600 // 10 分钟
	}
	return pool
}

// dialector 根据驱动选择方言
func dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(BuildDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := GetPoolConfig(cfg)
	if cfg.Driver == "sqlite" {
		// SQLite 只允许一个写连接
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接,重试间隔指数退避
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration, log *logrus.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if maxRetries <= 0 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil && CheckHealth(db) {
			return db, nil
		}
		if err == nil {
			err = fmt.Errorf("database ping failed")
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			if log != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"attempt": i + 1,
					"wait":    retryInterval.String(),
				}).Warn("database connection failed, retrying")
			}
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Models 需要迁移的数据模型
func Models() []interface{} {
	return []interface{}{
		&model.TaskModel{},
		&model.MachineModel{},
		&model.WorkerModel{},
		&model.MaintenanceModel{},
		&model.StateHistoryModel{},
		&model.EventModel{},
		&model.AuditLogModel{},
	}
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// indexes 复合索引和部分索引,PostgreSQL 与 SQLite 语法一致
var indexes = []struct {
	name string
	sql  string
}{
	// 冲突检测按资源和开始时间扫描,只关心未终结的任务
	{"idx_tasks_machine_active", "CREATE INDEX IF NOT EXISTS idx_tasks_machine_active ON schedule_tasks(machine_id, start_time) WHERE status NOT IN ('completed', 'cancelled')"},
	{"idx_tasks_assignee_active", "CREATE INDEX IF NOT EXISTS idx_tasks_assignee_active ON schedule_tasks(assignee_id, start_time) WHERE status NOT IN ('completed', 'cancelled')"},
	{"idx_tasks_window", "CREATE INDEX IF NOT EXISTS idx_tasks_window ON schedule_tasks(start_time, end_time)"},
	{"idx_maintenance_machine_date", "CREATE INDEX IF NOT EXISTS idx_maintenance_machine_date ON maintenance_records(machine_id, scheduled_date)"},
	{"idx_maintenance_status_date", "CREATE INDEX IF NOT EXISTS idx_maintenance_status_date ON maintenance_records(status, scheduled_date)"},
	{"idx_history_task_created", "CREATE INDEX IF NOT EXISTS idx_history_task_created ON task_history(task_id, created_at)"},
	{"idx_events_status_created", "CREATE INDEX IF NOT EXISTS idx_events_status_created ON schedule_events(status, created_at)"},
	{"idx_audit_resource", "CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)"},
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}
	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
