package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Fixtures 演示数据,对应 YAML 文件的结构
type Fixtures struct {
	// Base 文件中时间的参考日期,Rebase 以它为原点平移
	Base        time.Time     `yaml:"base"`
	Machines    []Machine     `yaml:"machines"`
	Workers     []Worker      `yaml:"workers"`
	Tasks       []Task        `yaml:"tasks"`
	Maintenance []Maintenance `yaml:"maintenance"`
}

// Machine 机器
type Machine struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Capacity float64 `yaml:"capacity"`
	Status   string  `yaml:"status"`
	Location string  `yaml:"location"`
}

// Worker 工人
type Worker struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Skills []string `yaml:"skills"`
	Active *bool    `yaml:"active"`
}

// Task 生产任务
type Task struct {
	Title            string    `yaml:"title"`
	Description      string    `yaml:"description"`
	Machine          string    `yaml:"machine"`
	Component        string    `yaml:"component"`
	Order            string    `yaml:"order"`
	Assignee         string    `yaml:"assignee"`
	Start            time.Time `yaml:"start"`
	End              time.Time `yaml:"end"`
	Priority         string    `yaml:"priority"`
	EstimatedMinutes int       `yaml:"estimated_minutes"`
}

// Maintenance 维护记录
type Maintenance struct {
	Machine       string    `yaml:"machine"`
	Title         string    `yaml:"title"`
	Type          string    `yaml:"type"`
	ScheduledDate time.Time `yaml:"scheduled_date"`
	AssignedTo    string    `yaml:"assigned_to"`
	Notes         string    `yaml:"notes"`
}

// Load 读取 YAML 文件
func Load(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容
func Parse(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &fx, nil
}

// Rebase 平移所有时间,使 Base 落在 to 上;Base 为空时不做处理
func (fx *Fixtures) Rebase(to time.Time) {
	if fx.Base.IsZero() {
		return
	}
	shift := to.Sub(fx.Base)
	for i := range fx.Tasks {
		fx.Tasks[i].Start = fx.Tasks[i].Start.Add(shift)
		fx.Tasks[i].End = fx.Tasks[i].End.Add(shift)
	}
	for i := range fx.Maintenance {
		fx.Maintenance[i].ScheduledDate = fx.Maintenance[i].ScheduledDate.Add(shift)
	}
	fx.Base = to
}

// Services 写入数据用到的服务
type Services struct {
	Machine     service.MachineService
	Worker      service.WorkerService
	Task        service.TaskService
	Maintenance service.MaintenanceService
}

// Summary 写入结果统计
type Summary struct {
	Machines    int
	Workers     int
	Tasks       int
	Maintenance int
	Skipped     int
}

// Apply 通过服务层写入数据,已存在的机器和工人会被跳过
func Apply(ctx context.Context, fx *Fixtures, svcs Services, actor service.Actor, logger *logrus.Logger) (Summary, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var sum Summary

	for _, m := range fx.Machines {
		if m.ID != "" {
			if _, err := svcs.Machine.Get(ctx, m.ID); err == nil {
				sum.Skipped++
				continue
			} else if !errors.Is(err, schedule.ErrNotFound) {
				return sum, err
			}
		}
		if _, err := svcs.Machine.Create(ctx, actor, &service.CreateMachineRequest{
			ID:       m.ID,
			Name:     m.Name,
			Type:     m.Type,
			Capacity: m.Capacity,
			Status:   m.Status,
			Location: m.Location,
		}); err != nil {
			return sum, fmt.Errorf("machine %q: %w", m.ID, err)
		}
		sum.Machines++
	}

	for _, w := range fx.Workers {
		if w.ID != "" {
			if _, err := svcs.Worker.Get(ctx, w.ID); err == nil {
				sum.Skipped++
				continue
			} else if !errors.Is(err, schedule.ErrNotFound) {
				return sum, err
			}
		}
		if _, err := svcs.Worker.Create(ctx, actor, &service.CreateWorkerRequest{
			ID:     w.ID,
			Name:   w.Name,
			Skills: w.Skills,
			Active: w.Active,
		}); err != nil {
			return sum, fmt.Errorf("worker %q: %w", w.ID, err)
		}
		sum.Workers++
	}

	for i, t := range fx.Tasks {
		if _, err := svcs.Task.Create(ctx, actor, &service.CreateTaskRequest{
			Title:            t.Title,
			Description:      t.Description,
			MachineID:        t.Machine,
			ComponentID:      t.Component,
			OrderID:          t.Order,
			AssigneeID:       t.Assignee,
			Start:            t.Start,
			End:              t.End,
			Priority:         t.Priority,
			EstimatedMinutes: t.EstimatedMinutes,
		}); err != nil {
			return sum, fmt.Errorf("task #%d %q: %w", i, t.Title, err)
		}
		sum.Tasks++
	}

	for i, m := range fx.Maintenance {
		if _, err := svcs.Maintenance.Create(ctx, actor, &service.CreateMaintenanceRequest{
			MachineID:     m.Machine,
			Title:         m.Title,
			Type:          m.Type,
			ScheduledDate: m.ScheduledDate,
			AssignedTo:    m.AssignedTo,
			Notes:         m.Notes,
		}); err != nil {
			return sum, fmt.Errorf("maintenance #%d %q: %w", i, m.Title, err)
		}
		sum.Maintenance++
	}

	logger.WithFields(logrus.Fields{
		"machines":    sum.Machines,
		"workers":     sum.Workers,
		"tasks":       sum.Tasks,
		"maintenance": sum.Maintenance,
		"skipped":     sum.Skipped,
	}).Info("fixtures applied")
	return sum, nil
}
