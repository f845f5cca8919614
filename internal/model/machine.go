package model

import (
	"errors"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
)

// MachineModel 机器数据模型
type MachineModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Type      string    `gorm:"type:varchar(64);not null;index"`
	Capacity  float64   `gorm:"not null;default:1"` // 每小时产能
	Status    string    `gorm:"type:varchar(32);not null;index"`
	Location  string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MachineModel) TableName() string {
	return "machines"
}

// Validate 验证机器模型
func (mm *MachineModel) Validate() error {
	if mm.ID == "" {
		return errors.New("machine ID is required")
	}
	if mm.Name == "" {
		return errors.New("machine name is required")
	}
	if mm.Type == "" {
		return errors.New("machine type is required")
	}
	if mm.Capacity <= 0 {
		return errors.New("machine capacity must be positive")
	}
	if !schedule.MachineStatus(mm.Status).Valid() {
		return errors.New("machine status is invalid")
	}
	return nil
}

// ToDomain 转换为调度使用的机器
func (mm *MachineModel) ToDomain() schedule.Machine {
	return schedule.Machine{
		ID:       mm.ID,
		Name:     mm.Name,
		Type:     mm.Type,
		Capacity: mm.Capacity,
		Status:   schedule.MachineStatus(mm.Status),
	}
}
