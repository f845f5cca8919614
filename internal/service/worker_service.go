package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WorkerService 工人服务接口
type WorkerService interface {
	Create(ctx context.Context, actor Actor, req *CreateWorkerRequest) (*WorkerInfo, error)
	Get(ctx context.Context, id string) (*WorkerInfo, error)
	List(ctx context.Context, activeOnly bool) ([]*WorkerInfo, error)
	Availability(ctx context.Context, id string, window schedule.Window) (schedule.Availability, error)
}

// CreateWorkerRequest 创建工人请求
type CreateWorkerRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name" binding:"required"`
	Skills []string `json:"skills"`
	Active *bool    `json:"active"`
}

// WorkerInfo 工人详情
type WorkerInfo struct {
	schedule.Assignee
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type workerService struct {
	workerRepo  repository.WorkerRepository
	store       schedule.Store
	auditLogSvc AuditLogService
	logger      *logrus.Logger
}

// NewWorkerService 创建工人服务
func NewWorkerService(workerRepo repository.WorkerRepository, store schedule.Store, auditLogSvc AuditLogService, logger *logrus.Logger) WorkerService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &workerService{
		workerRepo:  workerRepo,
		store:       store,
		auditLogSvc: auditLogSvc,
		logger:      logger,
	}
}

// Create 创建工人
func (s *workerService) Create(ctx context.Context, actor Actor, req *CreateWorkerRequest) (*WorkerInfo, error) {
	if err := requireDispatch(actor); err != nil {
		return nil, err
	}
	if err := validateIdentity(req.ID, req.Name); err != nil {
		return nil, err
	}
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	w := &model.WorkerModel{
		ID:        id,
		Name:      req.Name,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.SetSkills(req.Skills)
	if err := s.workerRepo.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save worker: %w", err)
	}

	if s.auditLogSvc != nil {
		if err := s.auditLogSvc.RecordAction(ctx, actor.UserID, "create", "worker", w.ID, req); err != nil {
			s.logger.WithError(err).WithField("worker_id", w.ID).Warn("failed to record audit log")
		}
	}
	return &WorkerInfo{Assignee: w.ToDomain(), CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}, nil
}

// Get 获取工人详情
func (s *workerService) Get(ctx context.Context, id string) (*WorkerInfo, error) {
	w, err := s.workerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkerInfo{Assignee: w.ToDomain(), CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}, nil
}

// List 列出工人
func (s *workerService) List(ctx context.Context, activeOnly bool) ([]*WorkerInfo, error) {
	models, err := s.workerRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	out := make([]*WorkerInfo, 0, len(models))
	for _, w := range models {
		out = append(out, &WorkerInfo{Assignee: w.ToDomain(), CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt})
	}
	return out, nil
}

// Availability 工人在窗口内的忙闲
func (s *workerService) Availability(ctx context.Context, id string, window schedule.Window) (schedule.Availability, error) {
	return s.store.AssigneeAvailability(ctx, id, window)
}
