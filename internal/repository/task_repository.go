package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// terminalStatuses 不占用资源的任务状态
var terminalStatuses = []string{string(schedule.StatusCompleted), string(schedule.StatusCancelled)}

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.TaskModel) error
	FindByID(ctx context.Context, id string) (*model.TaskModel, error)
	FindByFilter(ctx context.Context, filter schedule.TaskFilter) ([]*model.TaskModel, int64, error)
	// UpdateVersioned 仅当版本号等于 expectedVersion 时更新,并把版本号加一
	UpdateVersioned(ctx context.Context, id string, updates map[string]interface{}, expectedVersion int64) (*model.TaskModel, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 保存新任务,版本号从 1 开始
func (r *taskRepository) Create(ctx context.Context, task *model.TaskModel) error {
	if task.Version == 0 {
		task.Version = 1
	}
	if err := task.Validate(); err != nil {
		return err
	}
	task.StartTime = task.StartTime.UTC()
	task.EndTime = task.EndTime.UTC()
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(ctx context.Context, id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.NotFoundError("task", id)
		}
		return nil, err
	}
	return &task, nil
}

// FindByFilter 根据过滤器查找任务,返回当前页和总数
func (r *taskRepository) FindByFilter(ctx context.Context, filter schedule.TaskFilter) ([]*model.TaskModel, int64, error) {
	query := applyTaskFilter(r.db.WithContext(ctx).Model(&model.TaskModel{}), filter)

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

	var tasks []*model.TaskModel
	err := query.Order("start_time ASC").Order("id ASC").Find(&tasks).Error
	return tasks, total, err
}

// applyTaskFilter 将过滤条件转换为查询条件
func applyTaskFilter(query *gorm.DB, filter schedule.TaskFilter) *gorm.DB {
	if !filter.IncludeTerminal {
		query = query.Where("status NOT IN ?", terminalStatuses)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.MachineID != "" {
		query = query.Where("machine_id = ?", filter.MachineID)
	}
	if filter.AssigneeID != "" {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	// 半开区间相交: start < to AND end > from
	if !filter.To.IsZero() {
		query = query.Where("start_time < ?", filter.To.UTC())
	}
	if !filter.From.IsZero() {
		query = query.Where("end_time > ?", filter.From.UTC())
	}
	return query
}

// UpdateVersioned 乐观锁更新
func (r *taskRepository) UpdateVersioned(ctx context.Context, id string, updates map[string]interface{}, expectedVersion int64) (*model.TaskModel, error) {
	var updated model.TaskModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := make(map[string]interface{}, len(updates)+2)
		for k, v := range updates {
			values[k] = v
		}
		values["version"] = gorm.Expr("version + 1")
		values["updated_at"] = time.Now().UTC()

		res := tx.Model(&model.TaskModel{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.TaskModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return schedule.NotFoundError("task", id)
			}
			return fmt.Errorf("task %q expected version %d: %w", id, expectedVersion, schedule.ErrConflict)
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CountByStatus 按状态统计任务数
func (r *taskRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
