package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/metrics"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TaskService 排产任务服务接口
type TaskService interface {
	Create(ctx context.Context, actor Actor, req *CreateTaskRequest) (schedule.Task, error)
	List(ctx context.Context, actor Actor, query TaskQuery) ([]schedule.Task, int64, error)
	Get(ctx context.Context, actor Actor, id string) (schedule.Task, error)
	TransitionStatus(ctx context.Context, actor Actor, id string, req *StatusRequest) (schedule.Task, error)
	Cancel(ctx context.Context, actor Actor, id string, req *CancelRequest) (schedule.Task, error)
	History(ctx context.Context, actor Actor, id string) ([]*model.StateHistoryModel, error)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	MachineID        string    `json:"machine_id"`
	ComponentID      string    `json:"component_id"`
	OrderID          string    `json:"order_id"`
	AssigneeID       string    `json:"assignee_id"`
	Start            time.Time `json:"start" binding:"required"`
	End              time.Time `json:"end" binding:"required"`
	Priority         string    `json:"priority"`
	EstimatedMinutes int       `json:"estimated_minutes"`
}

// TaskQuery 任务列表查询参数
type TaskQuery struct {
	MachineID       string
	AssigneeID      string
	Statuses        []schedule.Status
	From            time.Time
	To              time.Time
	IncludeTerminal bool
	Page            int
	PageSize        int
}

// StatusRequest 状态变更请求
type StatusRequest struct {
	Status          schedule.Status `json:"status" binding:"required"`
	ExpectedVersion int64           `json:"expected_version" binding:"required"`
	ActualMinutes   *int            `json:"actual_minutes"`
	Reason          string          `json:"reason"`
}

// CancelRequest 取消任务请求
type CancelRequest struct {
	ExpectedVersion int64  `json:"expected_version" binding:"required"`
	Reason          string `json:"reason"`
}

type taskService struct {
	store       schedule.Store
	taskRepo    repository.TaskRepository
	historyRepo repository.StateHistoryRepository
	machineRepo repository.MachineRepository
	workerRepo  repository.WorkerRepository
	auditLogSvc AuditLogService
	events      EventSink
	logger      *logrus.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(
	store schedule.Store,
	taskRepo repository.TaskRepository,
	historyRepo repository.StateHistoryRepository,
	machineRepo repository.MachineRepository,
	workerRepo repository.WorkerRepository,
	auditLogSvc AuditLogService,
	events EventSink,
	logger *logrus.Logger,
) TaskService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &taskService{
		store:       store,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		machineRepo: machineRepo,
		workerRepo:  workerRepo,
		auditLogSvc: auditLogSvc,
		events:      events,
		logger:      logger,
	}
}

// Create 创建任务,时间窗口必须合法,引用的机器和工人必须存在
func (s *taskService) Create(ctx context.Context, actor Actor, req *CreateTaskRequest) (schedule.Task, error) {
	if err := requireDispatch(actor); err != nil {
		return schedule.Task{}, err
	}
	if err := validateIdentity("", req.Title); err != nil {
		return schedule.Task{}, err
	}
	window, err := schedule.NewWindow(req.Start.UTC(), req.End.UTC())
	if err != nil {
		return schedule.Task{}, err
	}

	priority := schedule.Priority(strings.ToLower(req.Priority))
	if req.Priority == "" {
		priority = schedule.PriorityMedium
	}
	if !priority.Valid() {
		return schedule.Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, req.Priority)
	}
	if req.EstimatedMinutes < 0 {
		return schedule.Task{}, fmt.Errorf("%w: estimated_minutes must not be negative", ErrValidation)
	}

	if req.MachineID != "" {
		if _, err := s.machineRepo.FindByID(ctx, req.MachineID); err != nil {
			return schedule.Task{}, err
		}
	}
	if req.AssigneeID != "" {
		if _, err := s.workerRepo.FindByID(ctx, req.AssigneeID); err != nil {
			return schedule.Task{}, err
		}
	}

	now := time.Now().UTC()
	m := &model.TaskModel{
		ID:               uuid.New().String(),
		Title:            req.Title,
		Description:      req.Description,
		MachineID:        req.MachineID,
		ComponentID:      req.ComponentID,
		OrderID:          req.OrderID,
		AssigneeID:       req.AssigneeID,
		StartTime:        window.Start,
		EndTime:          window.End,
		Status:           string(schedule.StatusScheduled),
		Priority:         string(priority),
		EstimatedMinutes: req.EstimatedMinutes,
		Version:          1,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.taskRepo.Create(ctx, m); err != nil {
		return schedule.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	metrics.RecordTaskCreated()
	task := m.ToDomain()

	s.recordHistory(ctx, task.ID, "create", "", string(task.Status), "", actor.UserID)
	s.audit(ctx, actor, "create", task.ID, map[string]interface{}{
		"title":       task.Title,
		"machine_id":  task.MachineID,
		"assignee_id": task.AssigneeID,
		"window":      task.Window,
	})
	s.emit(ctx, integration.EventTaskCreated, task, actor, task, task.MachineID)

	return task, nil
}

// List 按角色过滤后列出任务
func (s *taskService) List(ctx context.Context, actor Actor, query TaskQuery) ([]schedule.Task, int64, error) {
	base, err := schedule.FilterForRole(actor.Role, actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	if !query.From.IsZero() && !query.To.IsZero() {
		if _, err := schedule.NewWindow(query.From, query.To); err != nil {
			return nil, 0, err
		}
	}

	page, pageSize := normalizePage(query.Page, query.PageSize)
	filter := base.Narrow(schedule.TaskFilter{
		MachineID:       query.MachineID,
		AssigneeID:      query.AssigneeID,
		Statuses:        query.Statuses,
		From:            query.From,
		To:              query.To,
		IncludeTerminal: query.IncludeTerminal || includesTerminal(query.Statuses),
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	})

	models, total, err := s.taskRepo.FindByFilter(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]schedule.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, m.ToDomain())
	}
	return tasks, total, nil
}

// Get 获取任务详情,受角色限制的用户看不到别人的任务
func (s *taskService) Get(ctx context.Context, actor Actor, id string) (schedule.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return schedule.Task{}, err
	}
	if err := visible(actor, task); err != nil {
		return schedule.Task{}, err
	}
	return task, nil
}

// TransitionStatus 按状态机变更任务状态
func (s *taskService) TransitionStatus(ctx context.Context, actor Actor, id string, req *StatusRequest) (schedule.Task, error) {
	if !req.Status.Valid() {
		return schedule.Task{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if req.ActualMinutes != nil && *req.ActualMinutes < 0 {
		return schedule.Task{}, fmt.Errorf("%w: actual_minutes must not be negative", ErrValidation)
	}
	// 取消只能由调度角色发起
	if req.Status == schedule.StatusCancelled {
		if err := requireDispatch(actor); err != nil {
			return schedule.Task{}, err
		}
	}

	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return schedule.Task{}, err
	}
	if !schedule.CanTransition(task.Status, req.Status) {
		return schedule.Task{}, fmt.Errorf("%w: %s -> %s", schedule.ErrInvalidTransition, task.Status, req.Status)
	}

	patch := schedule.TaskPatch{Status: &req.Status, ActualMinutes: req.ActualMinutes}
	updated, err := s.store.UpdateTask(ctx, id, patch, req.ExpectedVersion)
	if err != nil {
		return schedule.Task{}, err
	}

	s.recordHistory(ctx, id, "transition", string(task.Status), string(updated.Status), req.Reason, actor.UserID)
	s.audit(ctx, actor, "transition", id, map[string]interface{}{
		"from":    task.Status,
		"to":      updated.Status,
		"reason":  req.Reason,
		"version": updated.Version,
	})

	evtType := integration.EventTaskStatusChanged
	if updated.Status == schedule.StatusCancelled {
		evtType = integration.EventTaskCancelled
	}
	s.emit(ctx, evtType, updated, actor, map[string]interface{}{
		"from": task.Status,
		"to":   updated.Status,
	}, updated.MachineID)

	return updated, nil
}

// Cancel 取消任务,任务只做状态变更不删除
func (s *taskService) Cancel(ctx context.Context, actor Actor, id string, req *CancelRequest) (schedule.Task, error) {
	return s.TransitionStatus(ctx, actor, id, &StatusRequest{
		Status:          schedule.StatusCancelled,
		ExpectedVersion: req.ExpectedVersion,
		Reason:          req.Reason,
	})
}

// History 任务的状态和分配变更历史
func (s *taskService) History(ctx context.Context, actor Actor, id string) ([]*model.StateHistoryModel, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.historyRepo.FindByTaskID(ctx, id)
}

func (s *taskService) recordHistory(ctx context.Context, taskID, action, from, to, reason, operator string) {
	recordHistory(ctx, s.historyRepo, s.logger, taskID, action, from, to, reason, operator)
}

func (s *taskService) audit(ctx context.Context, actor Actor, action, taskID string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, actor.UserID, action, "task", taskID, details); err != nil {
		s.logger.WithError(err).WithField("task_id", taskID).Warn("failed to record audit log")
	}
}

func (s *taskService) emit(ctx context.Context, typ integration.EventType, task schedule.Task, actor Actor, payload interface{}, machineIDs ...string) {
	emit(ctx, s.events, s.logger, typ, task.ID, actor, payload, machineIDs...)
}

// visible 操作员和技术员只能访问分配给自己的任务
func visible(actor Actor, task schedule.Task) error {
	filter, err := schedule.FilterForRole(actor.Role, actor.UserID)
	if err != nil {
		return err
	}
	if filter.AssigneeID != "" && task.AssigneeID != filter.AssigneeID {
		return schedule.NotFoundError("task", task.ID)
	}
	if filter.MachineID != "" && task.MachineID != filter.MachineID {
		return schedule.NotFoundError("task", task.ID)
	}
	return nil
}

// recordHistory 写入任务历史,失败只记录日志
func recordHistory(ctx context.Context, repo repository.StateHistoryRepository, logger *logrus.Logger, taskID, action, from, to, reason, operator string) {
	if repo == nil {
		return
	}
	h := &model.StateHistoryModel{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Action:    action,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		Operator:  operator,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Save(ctx, h); err != nil {
		logger.WithError(err).WithField("task_id", taskID).Warn("failed to record task history")
	}
}

// emit 发送排产事件,写入失败只记录日志
func emit(ctx context.Context, sink EventSink, logger *logrus.Logger, typ integration.EventType, taskID string, actor Actor, payload interface{}, machineIDs ...string) {
	if sink == nil {
		return
	}
	evt, err := integration.NewEvent(typ, taskID, actor.UserID, payload, machineIDs...)
	if err == nil {
		err = sink.Handle(ctx, evt)
	}
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"task_id": taskID,
			"type":    typ,
		}).Warn("failed to emit schedule event")
	}
}

// includesTerminal 查询条件中是否包含终结状态
func includesTerminal(statuses []schedule.Status) bool {
	for _, st := range statuses {
		if st.IsTerminal() {
			return true
		}
	}
	return false
}

// normalizePage 规范分页参数
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// ParseStatuses 解析逗号分隔的状态列表
func ParseStatuses(raw string) ([]schedule.Status, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]schedule.Status, 0, len(parts))
	for _, p := range parts {
		st := schedule.Status(strings.TrimSpace(p))
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, p)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// IsRetryable 是否为可重试的错误
func IsRetryable(err error) bool {
	return errors.Is(err, schedule.ErrConflict)
}
