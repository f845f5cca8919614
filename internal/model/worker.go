package model

import (
	"errors"
	"strings"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
)

// WorkerModel 工人数据模型
type WorkerModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Skills    string    `gorm:"type:text"` // 逗号分隔
	Active    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (WorkerModel) TableName() string {
	return "workers"
}

// Validate 验证工人模型
func (wm *WorkerModel) Validate() error {
	if wm.ID == "" {
		return errors.New("worker ID is required")
	}
	if wm.Name == "" {
		return errors.New("worker name is required")
	}
	return nil
}

// SkillList 技能列表
func (wm *WorkerModel) SkillList() []string {
	if wm.Skills == "" {
		return nil
	}
	parts := strings.Split(wm.Skills, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// SetSkills 设置技能列表
func (wm *WorkerModel) SetSkills(skills []string) {
	wm.Skills = strings.Join(skills, ",")
}

// ToDomain 转换为调度使用的工人
func (wm *WorkerModel) ToDomain() schedule.Assignee {
	return schedule.Assignee{
		ID:     wm.ID,
		Name:   wm.Name,
		Skills: wm.SkillList(),
		Active: wm.Active,
	}
}
