package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MachineService 机器服务接口
type MachineService interface {
	Create(ctx context.Context, actor Actor, req *CreateMachineRequest) (*MachineInfo, error)
	Get(ctx context.Context, id string) (*MachineInfo, error)
	List(ctx context.Context, filter repository.MachineFilter) ([]*MachineInfo, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status schedule.MachineStatus) (*MachineInfo, error)
	Availability(ctx context.Context, id string, window schedule.Window) (schedule.Availability, error)
}

// CreateMachineRequest 创建机器请求
type CreateMachineRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" binding:"required"`
	Type     string  `json:"type" binding:"required"`
	Capacity float64 `json:"capacity" binding:"required,gt=0"`
	Status   string  `json:"status"`
	Location string  `json:"location"`
}

// UpdateMachineStatusRequest 更新机器状态请求
type UpdateMachineStatusRequest struct {
	Status schedule.MachineStatus `json:"status" binding:"required"`
}

// MachineInfo 机器详情
type MachineInfo struct {
	schedule.Machine
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func machineInfo(m *model.MachineModel) *MachineInfo {
	return &MachineInfo{
		Machine:   m.ToDomain(),
		Location:  m.Location,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type machineService struct {
	machineRepo repository.MachineRepository
	store       schedule.Store
	auditLogSvc AuditLogService
	logger      *logrus.Logger
}

// NewMachineService 创建机器服务
func NewMachineService(machineRepo repository.MachineRepository, store schedule.Store, auditLogSvc AuditLogService, logger *logrus.Logger) MachineService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &machineService{
		machineRepo: machineRepo,
		store:       store,
		auditLogSvc: auditLogSvc,
		logger:      logger,
	}
}

// Create 创建机器
func (s *machineService) Create(ctx context.Context, actor Actor, req *CreateMachineRequest) (*MachineInfo, error) {
	if err := requireDispatch(actor); err != nil {
		return nil, err
	}
	if err := validateIdentity(req.ID, req.Name); err != nil {
		return nil, err
	}
	status := schedule.MachineStatus(strings.ToLower(req.Status))
	if req.Status == "" {
		status = schedule.MachineOperational
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown machine status %q", ErrValidation, req.Status)
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	m := &model.MachineModel{
		ID:        id,
		Name:      req.Name,
		Type:      req.Type,
		Capacity:  req.Capacity,
		Status:    string(status),
		Location:  req.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.machineRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save machine: %w", err)
	}
	s.audit(ctx, actor, "create", m.ID, req)
	return machineInfo(m), nil
}

// Get 获取机器详情
func (s *machineService) Get(ctx context.Context, id string) (*MachineInfo, error) {
	m, err := s.machineRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return machineInfo(m), nil
}

// List 列出机器
func (s *machineService) List(ctx context.Context, filter repository.MachineFilter) ([]*MachineInfo, error) {
	models, err := s.machineRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	out := make([]*MachineInfo, 0, len(models))
	for _, m := range models {
		out = append(out, machineInfo(m))
	}
	return out, nil
}

// UpdateStatus 更新机器状态,进入 maintenance/offline 后不再参与调度
func (s *machineService) UpdateStatus(ctx context.Context, actor Actor, id string, status schedule.MachineStatus) (*MachineInfo, error) {
	if err := requireDispatch(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown machine status %q", ErrValidation, status)
	}
	if err := s.machineRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "update_status", id, map[string]string{"status": string(status)})
	return s.Get(ctx, id)
}

// Availability 机器在窗口内的忙闲
func (s *machineService) Availability(ctx context.Context, id string, window schedule.Window) (schedule.Availability, error) {
	return s.store.MachineAvailability(ctx, id, window)
}

func (s *machineService) audit(ctx context.Context, actor Actor, action, id string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, actor.UserID, action, "machine", id, details); err != nil {
		s.logger.WithError(err).WithField("machine_id", id).Warn("failed to record audit log")
	}
}
