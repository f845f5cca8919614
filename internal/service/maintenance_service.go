package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxNotesLength 维护备注最大长度
const maxNotesLength = 2000

// MaintenanceService 维护记录服务
// 所有读取路径在一次请求内使用同一个 now 计算有效状态
type MaintenanceService interface {
	Create(ctx context.Context, actor Actor, req *CreateMaintenanceRequest) (*MaintenanceRecord, error)
	Get(ctx context.Context, id string) (*MaintenanceRecord, error)
	List(ctx context.Context, q MaintenanceQuery) ([]*MaintenanceRecord, int64, error)
	Calendar(ctx context.Context, from, to time.Time) ([]*MaintenanceRecord, error)
	ForMachine(ctx context.Context, machineID string, q MaintenanceQuery) ([]*MaintenanceRecord, int64, error)
	Complete(ctx context.Context, actor Actor, id string, req *CompleteMaintenanceRequest) (*MaintenanceRecord, error)
}

// CreateMaintenanceRequest 创建维护记录请求
type CreateMaintenanceRequest struct {
	MachineID     string    `json:"machine_id" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	Type          string    `json:"type" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	AssignedTo    string    `json:"assigned_to"`
	Notes         string    `json:"notes"`
}

// CompleteMaintenanceRequest 完成维护请求
type CompleteMaintenanceRequest struct {
	Notes string `json:"notes"`
}

// MaintenanceQuery 维护记录查询参数,Status 按有效状态过滤
type MaintenanceQuery struct {
	MachineID  string
	AssignedTo string
	Status     string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// MaintenanceRecord 维护记录,Status 为有效状态
type MaintenanceRecord struct {
	ID            string                     `json:"id"`
	MachineID     string                     `json:"machine_id"`
	Title         string                     `json:"title"`
	Type          schedule.MaintenanceType   `json:"type"`
	Status        schedule.MaintenanceStatus `json:"status"`
	ScheduledDate time.Time                  `json:"scheduled_date"`
	CompletedDate *time.Time                 `json:"completed_date,omitempty"`
	AssignedTo    string                     `json:"assigned_to,omitempty"`
	Notes         string                     `json:"notes,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// maintenanceRecord 转换为读取视图
func maintenanceRecord(m *model.MaintenanceModel, now time.Time) *MaintenanceRecord {
	return &MaintenanceRecord{
		ID:            m.ID,
		MachineID:     m.MachineID,
		Title:         m.Title,
		Type:          schedule.MaintenanceType(m.Type),
		Status:        schedule.EffectiveMaintenanceStatus(schedule.MaintenanceStatus(m.Status), m.ScheduledDate, now),
		ScheduledDate: m.ScheduledDate.UTC(),
		CompletedDate: m.CompletedDate,
		AssignedTo:    m.AssignedTo,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type maintenanceService struct {
	maintenanceRepo repository.MaintenanceRepository
	machineRepo     repository.MachineRepository
	auditLogSvc     AuditLogService
	logger          *logrus.Logger
	now             func() time.Time
}

// NewMaintenanceService 创建维护记录服务
func NewMaintenanceService(
	maintenanceRepo repository.MaintenanceRepository,
	machineRepo repository.MachineRepository,
	auditLogSvc AuditLogService,
	logger *logrus.Logger,
	now func() time.Time,
) MaintenanceService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &maintenanceService{
		maintenanceRepo: maintenanceRepo,
		machineRepo:     machineRepo,
		auditLogSvc:     auditLogSvc,
		logger:          logger,
		now:             now,
	}
}

// Create 创建维护记录
func (s *maintenanceService) Create(ctx context.Context, actor Actor, req *CreateMaintenanceRequest) (*MaintenanceRecord, error) {
	if err := requireDispatch(actor); err != nil {
		return nil, err
	}
	typ := schedule.MaintenanceType(strings.ToLower(req.Type))
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown maintenance type %q", ErrValidation, req.Type)
	}
	if _, err := s.machineRepo.FindByID(ctx, req.MachineID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &model.MaintenanceModel{
		ID:            uuid.New().String(),
		MachineID:     req.MachineID,
		Title:         req.Title,
		Type:          string(typ),
		Status:        string(schedule.MaintenanceScheduled),
		ScheduledDate: req.ScheduledDate.UTC(),
		AssignedTo:    req.AssignedTo,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.maintenanceRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save maintenance record: %w", err)
	}
	s.audit(ctx, actor, "create", m.ID, req)
	return maintenanceRecord(m, now), nil
}

// Get 获取维护记录详情
func (s *maintenanceService) Get(ctx context.Context, id string) (*MaintenanceRecord, error) {
	now := s.now()
	m, err := s.maintenanceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return maintenanceRecord(m, now), nil
}

// List 列出维护记录
func (s *maintenanceService) List(ctx context.Context, q MaintenanceQuery) ([]*MaintenanceRecord, int64, error) {
	return s.list(ctx, q, s.now())
}

// Calendar 计划日期在 [from, to) 内的维护记录
func (s *maintenanceService) Calendar(ctx context.Context, from, to time.Time) ([]*MaintenanceRecord, error) {
	if _, err := schedule.NewWindow(from, to); err != nil {
		return nil, err
	}
	now := s.now()
	models, _, err := s.maintenanceRepo.FindByFilter(ctx, repository.MaintenanceFilter{From: from, To: to, Now: now})
	if err != nil {
		return nil, fmt.Errorf("failed to load maintenance calendar: %w", err)
	}
	return toRecords(models, now), nil
}

// ForMachine 某台机器的维护记录
func (s *maintenanceService) ForMachine(ctx context.Context, machineID string, q MaintenanceQuery) ([]*MaintenanceRecord, int64, error) {
	now := s.now()
	if _, err := s.machineRepo.FindByID(ctx, machineID); err != nil {
		return nil, 0, err
	}
	q.MachineID = machineID
	return s.list(ctx, q, now)
}

// Complete 标记维护完成
func (s *maintenanceService) Complete(ctx context.Context, actor Actor, id string, req *CompleteMaintenanceRequest) (*MaintenanceRecord, error) {
	now := s.now()
	m, err := s.maintenanceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// 技术员可以完成分配给自己的维护
	if !actor.Role.CanDispatch() && !(actor.Role == schedule.RoleTechnician && m.AssignedTo == actor.UserID) {
		return nil, ErrForbidden
	}

	switch schedule.MaintenanceStatus(m.Status) {
	case schedule.MaintenanceScheduled, schedule.MaintenanceInProgress:
	default:
		return nil, fmt.Errorf("%w: maintenance %s is %s", schedule.ErrInvalidTransition, id, m.Status)
	}

	completed := now.UTC()
	m.Status = string(schedule.MaintenanceCompleted)
	m.CompletedDate = &completed
	m.UpdatedAt = completed
	if req.Notes != "" {
		notes, err := utils.TrimAndValidate(req.Notes, maxNotesLength)
		if err != nil {
			return nil, fmt.Errorf("%w: notes: %v", ErrValidation, err)
		}
		m.Notes = notes
	}
	if err := s.maintenanceRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to complete maintenance: %w", err)
	}
	s.audit(ctx, actor, "complete", id, req)
	return maintenanceRecord(m, now), nil
}

func (s *maintenanceService) list(ctx context.Context, q MaintenanceQuery, now time.Time) ([]*MaintenanceRecord, int64, error) {
	status := schedule.MaintenanceStatus(strings.ToLower(q.Status))
	if q.Status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown maintenance status %q", ErrValidation, q.Status)
	}
	page, pageSize := normalizePage(q.Page, q.PageSize)
	models, total, err := s.maintenanceRepo.FindByFilter(ctx, repository.MaintenanceFilter{
		MachineID:  q.MachineID,
		AssignedTo: q.AssignedTo,
		Status:     status,
		From:       q.From,
		To:         q.To,
		Now:        now,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list maintenance records: %w", err)
	}
	return toRecords(models, now), total, nil
}

func (s *maintenanceService) audit(ctx context.Context, actor Actor, action, id string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, actor.UserID, action, "maintenance", id, details); err != nil {
		s.logger.WithError(err).WithField("maintenance_id", id).Warn("failed to record audit log")
	}
}

func toRecords(models []*model.MaintenanceModel, now time.Time) []*MaintenanceRecord {
	out := make([]*MaintenanceRecord, 0, len(models))
	for _, m := range models {
		out = append(out, maintenanceRecord(m, now))
	}
	return out
}
