package repository

import (
	"context"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"gorm.io/gorm"
)

// 事件状态
const (
	EventPending = "pending"
	EventSuccess = "success"
	EventFailed  = "failed"
)

// EventRepository 事件发件箱仓储接口
type EventRepository interface {
	Save(ctx context.Context, event *model.EventModel) error
	FindByTaskID(ctx context.Context, taskID string) ([]*model.EventModel, error)
	FindPending(ctx context.Context, limit int) ([]*model.EventModel, error)
	UpdateStatus(ctx context.Context, id string, status string, retryCount int) error
}

// eventRepository 事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Save 保存事件
func (r *eventRepository) Save(ctx context.Context, event *model.EventModel) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(event).Error
}

// FindByTaskID 根据任务 ID 查找事件
func (r *eventRepository) FindByTaskID(ctx context.Context, taskID string) ([]*model.EventModel, error) {
	var events []*model.EventModel
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// FindPending 查找待投递的事件
func (r *eventRepository) FindPending(ctx context.Context, limit int) ([]*model.EventModel, error) {
	query := r.db.WithContext(ctx).Where("status = ?", EventPending).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []*model.EventModel
	err := query.Find(&events).Error
	return events, err
}

// UpdateStatus 更新事件投递状态
func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status string, retryCount int) error {
	return r.db.WithContext(ctx).Model(&model.EventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": retryCount,
			"updated_at":  time.Now().UTC(),
		}).Error
}
