package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// MaintenanceFilter 维护记录查询过滤器
// Status 按有效状态过滤,需要同时提供 Now
type MaintenanceFilter struct {
	MachineID  string
	AssignedTo string
	Status     schedule.MaintenanceStatus
	From       time.Time // scheduled_date >= From
	To         time.Time // scheduled_date < To
	Now        time.Time
	Limit      int
	Offset     int
}

// MaintenanceRepository 维护记录仓储接口
type MaintenanceRepository interface {
	Save(ctx context.Context, record *model.MaintenanceModel) error
	FindByID(ctx context.Context, id string) (*model.MaintenanceModel, error)
	FindByFilter(ctx context.Context, filter MaintenanceFilter) ([]*model.MaintenanceModel, int64, error)
}

// maintenanceRepository 维护记录仓储实现
type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository 创建维护记录仓储
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

// Save 保存维护记录
func (r *maintenanceRepository) Save(ctx context.Context, record *model.MaintenanceModel) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.ScheduledDate = record.ScheduledDate.UTC()
	return r.db.WithContext(ctx).Save(record).Error
}

// FindByID 根据 ID 查找维护记录
func (r *maintenanceRepository) FindByID(ctx context.Context, id string) (*model.MaintenanceModel, error) {
	var record model.MaintenanceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.NotFoundError("maintenance record", id)
		}
		return nil, err
	}
	return &record, nil
}

// FindByFilter 根据过滤器查找维护记录,按计划日期排序
func (r *maintenanceRepository) FindByFilter(ctx context.Context, filter MaintenanceFilter) ([]*model.MaintenanceModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.MaintenanceModel{})

	if filter.MachineID != "" {
		query = query.Where("machine_id = ?", filter.MachineID)
	}
	if filter.AssignedTo != "" {
		query = query.Where("assigned_to = ?", filter.AssignedTo)
	}
	if !filter.From.IsZero() {
		query = query.Where("scheduled_date >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("scheduled_date < ?", filter.To.UTC())
	}

	now := filter.Now.UTC()
	switch filter.Status {
	case "":
	case schedule.MaintenanceOverdue:
		query = query.Where("status = ? AND scheduled_date < ?", string(schedule.MaintenanceScheduled), now)
	case schedule.MaintenanceScheduled:
		query = query.Where("status = ? AND scheduled_date >= ?", string(schedule.MaintenanceScheduled), now)
	default:
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []*model.MaintenanceModel
	err := query.Order("scheduled_date ASC").Order("id ASC").Find(&records).Error
	return records, total, err
}
