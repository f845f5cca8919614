package repository

import (
	"context"
	"errors"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// WorkerRepository 工人仓储接口
type WorkerRepository interface {
	Save(ctx context.Context, worker *model.WorkerModel) error
	FindByID(ctx context.Context, id string) (*model.WorkerModel, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*model.WorkerModel, error)
}

// workerRepository 工人仓储实现
type workerRepository struct {
	db *gorm.DB
}

// NewWorkerRepository 创建工人仓储
func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

// Save 保存工人
func (r *workerRepository) Save(ctx context.Context, worker *model.WorkerModel) error {
	if err := worker.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(worker).Error
}

// FindByID 根据 ID 查找工人
func (r *workerRepository) FindByID(ctx context.Context, id string) (*model.WorkerModel, error) {
	var worker model.WorkerModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&worker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.NotFoundError("assignee", id)
		}
		return nil, err
	}
	return &worker, nil
}

// FindAll 查找工人,按 ID 排序
func (r *workerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*model.WorkerModel, error) {
	query := r.db.WithContext(ctx).Model(&model.WorkerModel{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var workers []*model.WorkerModel
	err := query.Order("id ASC").Find(&workers).Error
	return workers, err
}
