package model

import (
	"errors"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
)

// TaskModel 排产任务数据模型
type TaskModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	Title            string    `gorm:"type:varchar(255);not null"`
	Description      string    `gorm:"type:text"`
	MachineID        string    `gorm:"type:varchar(64);index"`
	ComponentID      string    `gorm:"type:varchar(64)"`
	OrderID          string    `gorm:"type:varchar(64);index"`
	AssigneeID       string    `gorm:"type:varchar(64);index"`
	StartTime        time.Time `gorm:"not null;index"`
	EndTime          time.Time `gorm:"not null;index"`
	Status           string    `gorm:"type:varchar(32);not null;index"` // scheduled/in_progress/completed/delayed/cancelled
	Priority         string    `gorm:"type:varchar(16);not null"`       // low/medium/high/critical
	EstimatedMinutes int       `gorm:"type:int"`
	ActualMinutes    int       `gorm:"type:int"`
	Version          int64     `gorm:"not null;default:1"` // 乐观锁版本号
	CreatedBy        string    `gorm:"type:varchar(64);index"`
	CreatedAt        time.Time `gorm:"not null;index"`
	UpdatedAt        time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "schedule_tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.Title == "" {
		return errors.New("task title is required")
	}
	if !schedule.Status(tm.Status).Valid() {
		return errors.New("task status is invalid")
	}
	if !schedule.Priority(tm.Priority).Valid() {
		return errors.New("task priority is invalid")
	}
	if !tm.StartTime.Before(tm.EndTime) {
		return schedule.ErrInvalidWindow
	}
	return nil
}

// ToDomain 转换为排产任务
func (tm *TaskModel) ToDomain() schedule.Task {
	return schedule.Task{
		ID:               tm.ID,
		Title:            tm.Title,
		Description:      tm.Description,
		MachineID:        tm.MachineID,
		ComponentID:      tm.ComponentID,
		OrderID:          tm.OrderID,
		AssigneeID:       tm.AssigneeID,
		Window:           schedule.Window{Start: tm.StartTime.UTC(), End: tm.EndTime.UTC()},
		Status:           schedule.Status(tm.Status),
		Priority:         schedule.Priority(tm.Priority),
		EstimatedMinutes: tm.EstimatedMinutes,
		ActualMinutes:    tm.ActualMinutes,
		Version:          tm.Version,
		UpdatedAt:        tm.UpdatedAt,
	}
}

// TaskModelFromDomain 从排产任务构造数据模型
func TaskModelFromDomain(t schedule.Task) *TaskModel {
	return &TaskModel{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		MachineID:        t.MachineID,
		ComponentID:      t.ComponentID,
		OrderID:          t.OrderID,
		AssigneeID:       t.AssigneeID,
		StartTime:        t.Window.Start,
		EndTime:          t.Window.End,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		EstimatedMinutes: t.EstimatedMinutes,
		ActualMinutes:    t.ActualMinutes,
		Version:          t.Version,
		UpdatedAt:        t.UpdatedAt,
	}
}
