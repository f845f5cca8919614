package model

import (
	"errors"
	"time"
)

// StateHistoryModel 任务状态与分配变更历史数据模型
type StateHistoryModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID    string    `gorm:"type:varchar(64);not null;index" json:"task_id"`
	Action    string    `gorm:"type:varchar(32);not null" json:"action"` // transition/reassign/apply_proposal
	FromState string    `gorm:"type:varchar(255)" json:"from"`
	ToState   string    `gorm:"type:varchar(255);not null" json:"to"`
	Reason    string    `gorm:"type:text" json:"reason,omitempty"`
	Operator  string    `gorm:"type:varchar(64);not null" json:"operator"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (StateHistoryModel) TableName() string {
	return "task_history"
}

// Validate 验证状态历史模型
func (shm *StateHistoryModel) Validate() error {
	if shm.ID == "" {
		return errors.New("history ID is required")
	}
	if shm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if shm.ToState == "" {
		return errors.New("to state is required")
	}
	if shm.Operator == "" {
		return errors.New("operator is required")
	}
	return nil
}
