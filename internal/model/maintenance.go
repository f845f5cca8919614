package model

import (
	"errors"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
)

// MaintenanceModel 维护记录数据模型
// Status 只保存 scheduled/in_progress/completed/cancelled,overdue 在读取时计算
type MaintenanceModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)"`
	MachineID     string    `gorm:"type:varchar(64);not null;index"`
	Title         string    `gorm:"type:varchar(255);not null"`
	Type          string    `gorm:"type:varchar(32);not null"`
	Status        string    `gorm:"type:varchar(32);not null;index"`
	ScheduledDate time.Time `gorm:"not null;index"`
	CompletedDate *time.Time
	AssignedTo    string    `gorm:"type:varchar(64);index"`
	Notes         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MaintenanceModel) TableName() string {
	return "maintenance_records"
}

// Validate 验证维护记录模型
func (mm *MaintenanceModel) Validate() error {
	if mm.ID == "" {
		return errors.New("maintenance ID is required")
	}
	if mm.MachineID == "" {
		return errors.New("machine ID is required")
	}
	if mm.Title == "" {
		return errors.New("maintenance title is required")
	}
	if !schedule.MaintenanceType(mm.Type).Valid() {
		return errors.New("maintenance type is invalid")
	}
	if !schedule.MaintenanceStatus(mm.Status).Stored() {
		return errors.New("maintenance status is invalid")
	}
	if mm.ScheduledDate.IsZero() {
		return errors.New("scheduled date is required")
	}
	return nil
}
