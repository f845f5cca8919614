package repository

import (
	"context"
	"errors"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// MachineFilter 机器查询过滤器
type MachineFilter struct {
	Type   string
	Status string
}

// MachineRepository 机器仓储接口
type MachineRepository interface {
	Save(ctx context.Context, machine *model.MachineModel) error
	FindByID(ctx context.Context, id string) (*model.MachineModel, error)
	FindAll(ctx context.Context, filter MachineFilter) ([]*model.MachineModel, error)
	UpdateStatus(ctx context.Context, id string, status schedule.MachineStatus) error
}

// machineRepository 机器仓储实现
type machineRepository struct {
	db *gorm.DB
}

// NewMachineRepository 创建机器仓储
func NewMachineRepository(db *gorm.DB) MachineRepository {
	return &machineRepository{db: db}
}

// Save 保存机器
func (r *machineRepository) Save(ctx context.Context, machine *model.MachineModel) error {
	if err := machine.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(machine).Error
}

// FindByID 根据 ID 查找机器
func (r *machineRepository) FindByID(ctx context.Context, id string) (*model.MachineModel, error) {
	var machine model.MachineModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&machine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.NotFoundError("machine", id)
		}
		return nil, err
	}
	return &machine, nil
}

// FindAll 查找机器,按 ID 排序
func (r *machineRepository) FindAll(ctx context.Context, filter MachineFilter) ([]*model.MachineModel, error) {
	query := r.db.WithContext(ctx).Model(&model.MachineModel{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var machines []*model.MachineModel
	err := query.Order("id ASC").Find(&machines).Error
	return machines, err
}

// UpdateStatus 更新机器状态
func (r *machineRepository) UpdateStatus(ctx context.Context, id string, status schedule.MachineStatus) error {
	res := r.db.WithContext(ctx).Model(&model.MachineModel{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return schedule.NotFoundError("machine", id)
	}
	return nil
}
