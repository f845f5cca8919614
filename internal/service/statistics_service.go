package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/metrics"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetTaskStatisticsByStatus(ctx context.Context) ([]*TaskStatisticsByStatus, error)
	GetTaskStatisticsByMachine(ctx context.Context) ([]*TaskStatisticsByMachine, error)
	GetTaskStatisticsByDay(ctx context.Context, from, to time.Time) ([]*TaskStatisticsByDay, error)
	GetScheduleOverview(ctx context.Context) (*ScheduleOverview, error)
}

// TaskStatisticsByStatus 按状态统计
type TaskStatisticsByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TaskStatisticsByMachine 按机器统计未终结的任务
type TaskStatisticsByMachine struct {
	MachineID string `json:"machine_id"`
	Count     int64  `json:"count"`
	Minutes   int64  `json:"minutes"` // 计划占用分钟数
}

// TaskStatisticsByDay 按开工日期统计
type TaskStatisticsByDay struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ScheduleOverview 排产概览
type ScheduleOverview struct {
	ByStatus            []*TaskStatisticsByStatus  `json:"by_status"`
	ByMachine           []*TaskStatisticsByMachine `json:"by_machine"`
	ActiveConflicts     int                        `json:"active_conflicts"`
	ConflictsBySeverity map[schedule.Severity]int  `json:"conflicts_by_severity"`
	OverdueMaintenance  int64                      `json:"overdue_maintenance"`
	GeneratedAt         time.Time                  `json:"generated_at"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db    *gorm.DB
	store schedule.Store
	now   func() time.Time
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB, store schedule.Store) StatisticsService {
	return &statisticsService{db: db, store: store, now: time.Now}
}

// GetTaskStatisticsByStatus 按状态统计任务
func (s *statisticsService) GetTaskStatisticsByStatus(ctx context.Context) ([]*TaskStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.WithContext(ctx).Model(&model.TaskModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by status: %w", err)
	}

	stats := make([]*TaskStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TaskStatisticsByStatus{Status: r.Status, Count: r.Count})
		metrics.UpdateTasksByStatus(r.Status, float64(r.Count))
	}
	return stats, nil
}

// GetTaskStatisticsByMachine 按机器统计未终结的任务
func (s *statisticsService) GetTaskStatisticsByMachine(ctx context.Context) ([]*TaskStatisticsByMachine, error) {
	tasks, err := s.store.ListActiveTasks(ctx, schedule.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by machine: %w", err)
	}

	index := make(map[string]*TaskStatisticsByMachine)
	stats := make([]*TaskStatisticsByMachine, 0)
	for _, t := range tasks {
		if t.MachineID == "" {
			continue
		}
		st, ok := index[t.MachineID]
		if !ok {
			st = &TaskStatisticsByMachine{MachineID: t.MachineID}
			index[t.MachineID] = st
			stats = append(stats, st)
		}
		st.Count++
		st.Minutes += int64(t.Window.Duration() / time.Minute)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].MachineID < stats[j].MachineID })
	return stats, nil
}

// GetTaskStatisticsByDay 按开工日期统计任务
func (s *statisticsService) GetTaskStatisticsByDay(ctx context.Context, from, to time.Time) ([]*TaskStatisticsByDay, error) {
	var results []struct {
		Date  string
		Count int64
	}

	query := s.db.WithContext(ctx).Model(&model.TaskModel{})
	if !from.IsZero() {
		query = query.Where("start_time >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("start_time < ?", to.UTC())
	}
	err := query.
		Select("CAST(DATE(start_time) AS TEXT) as date, COUNT(*) as count").
		Group("DATE(start_time)").
		Order("date ASC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by day: %w", err)
	}

	stats := make([]*TaskStatisticsByDay, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TaskStatisticsByDay{Date: r.Date, Count: r.Count})
	}
	return stats, nil
}

// GetScheduleOverview 排产概览: 状态分布、机器负载、当前冲突和逾期维护
func (s *statisticsService) GetScheduleOverview(ctx context.Context) (*ScheduleOverview, error) {
	now := s.now().UTC()

	byStatus, err := s.GetTaskStatisticsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byMachine, err := s.GetTaskStatisticsByMachine(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListActiveTasks(ctx, schedule.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load active tasks: %w", err)
	}
	conflicts := schedule.DetectConflicts(tasks)
	bySeverity := make(map[schedule.Severity]int)
	for _, c := range conflicts {
		bySeverity[c.Severity]++
	}

	var overdue int64
	err = s.db.WithContext(ctx).Model(&model.MaintenanceModel{}).
		Where("status = ? AND scheduled_date < ?", string(schedule.MaintenanceScheduled), now).
		Count(&overdue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue maintenance: %w", err)
	}

	return &ScheduleOverview{
		ByStatus:            byStatus,
		ByMachine:           byMachine,
		ActiveConflicts:     len(conflicts),
		ConflictsBySeverity: bySeverity,
		OverdueMaintenance:  overdue,
		GeneratedAt:         now,
	}, nil
}
