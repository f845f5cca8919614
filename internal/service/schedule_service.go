package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/cache"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/metrics"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// 改派结果,用于指标
const (
	outcomeSuccess     = "success"
	outcomeForced      = "forced"
	outcomeUnavailable = "unavailable"
	outcomeConflict    = "conflict"
	outcomeNotFound    = "not_found"
	outcomeInvalid     = "invalid"
)

// maxAlternatives 资源不可用时最多给出的建议数
const maxAlternatives = 3

// ScheduleOptions 排产服务配置,可热更新
type ScheduleOptions struct {
	Optimizer   schedule.Config
	ProposalTTL time.Duration
}

// ConflictQuery 冲突检测的快照范围
type ConflictQuery struct {
	MachineID  string
	AssigneeID string
	From       time.Time
	To         time.Time
}

// OptimizeRequest 优化请求
type OptimizeRequest struct {
	From                           *time.Time `json:"from"`
	To                             *time.Time `json:"to"`
	HorizonDays                    *int       `json:"horizon_days"`
	AllowCrossAssigneeReassignment *bool      `json:"allow_cross_assignee_reassignment"`
}

// Proposal 优化方案,保存在缓存中等待应用或丢弃
type Proposal struct {
	ID        string           `json:"id"`
	CreatedBy string           `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Window    *schedule.Window `json:"window,omitempty"`
	Config    schedule.Config  `json:"config"`
	Result    schedule.Result  `json:"result"`
}

// ApplyRequest 应用方案请求,TaskIDs 为空时应用全部变更
type ApplyRequest struct {
	TaskIDs []string `json:"task_ids"`
}

// ChangeOutcome 单个变更的应用结果
type ChangeOutcome string

const (
	ChangeApplied     ChangeOutcome = "applied"
	ChangeConflict    ChangeOutcome = "conflict"
	ChangeUnavailable ChangeOutcome = "unavailable"
	ChangeNotFound    ChangeOutcome = "not_found"
	ChangeFailed      ChangeOutcome = "failed"
)

// ChangeResult 单个变更的结果
type ChangeResult struct {
	TaskID  string         `json:"task_id"`
	Outcome ChangeOutcome  `json:"outcome"`
	Error   string         `json:"error,omitempty"`
	Task    *schedule.Task `json:"task,omitempty"`
}

// ApplyResult 应用方案的结果
type ApplyResult struct {
	ProposalID string         `json:"proposal_id"`
	Applied    int            `json:"applied"`
	Results    []ChangeResult `json:"results"`
}

// ReassignRequest 改派请求,未提供的字段保持不变
// 只提供 start 时保持原时长
type ReassignRequest struct {
	MachineID  *string    `json:"machine_id"`
	AssigneeID *string    `json:"assignee_id"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	Force      bool       `json:"force"`
	Reason     string     `json:"reason"`
}

// ScheduleService 冲突检测、优化方案与改派
type ScheduleService struct {
	store       schedule.Store
	historyRepo repository.StateHistoryRepository
	proposals   cache.Store
	auditLogSvc AuditLogService
	events      EventSink
	logger      *logrus.Logger
	now         func() time.Time

	mu   sync.RWMutex
	opts ScheduleOptions
}

// NewScheduleService 创建排产服务
func NewScheduleService(
	store schedule.Store,
	historyRepo repository.StateHistoryRepository,
	proposals cache.Store,
	auditLogSvc AuditLogService,
	events EventSink,
	logger *logrus.Logger,
	opts ScheduleOptions,
) *ScheduleService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ScheduleService{
		store:       store,
		historyRepo: historyRepo,
		proposals:   proposals,
		auditLogSvc: auditLogSvc,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
	s.UpdateConfig(opts)
	return s
}

// SetClock 替换时钟
func (s *ScheduleService) SetClock(now func() time.Time) {
	s.now = now
}

// UpdateConfig 热更新排产配置,进行中的请求继续使用旧配置
func (s *ScheduleService) UpdateConfig(opts ScheduleOptions) {
	if opts.ProposalTTL <= 0 {
		opts.ProposalTTL = 30 * time.Minute
	}
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// Options 当前配置
func (s *ScheduleService) Options() ScheduleOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Detect 检测给定任务之间的冲突
func (s *ScheduleService) Detect(tasks []schedule.Task) ([]schedule.Conflict, error) {
	for _, t := range tasks {
		if err := t.Window.Validate(); err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
	}
	conflicts := schedule.DetectConflicts(tasks)
	metrics.RecordConflictsDetected(len(conflicts))
	return conflicts, nil
}

// DetectFromStore 检测当前排产中的冲突,快照范围受角色限制
func (s *ScheduleService) DetectFromStore(ctx context.Context, actor Actor, q ConflictQuery) ([]schedule.Conflict, error) {
	base, err := schedule.FilterForRole(actor.Role, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !q.From.IsZero() && !q.To.IsZero() {
		if _, err := schedule.NewWindow(q.From, q.To); err != nil {
			return nil, err
		}
	}
	tasks, err := s.store.ListActiveTasks(ctx, base.Narrow(schedule.TaskFilter{
		MachineID:  q.MachineID,
		AssigneeID: q.AssigneeID,
		From:       q.From,
		To:         q.To,
	}))
	if err != nil {
		return nil, err
	}
	return s.Detect(tasks)
}

// Optimize 对当前排产快照运行优化器并保存方案
func (s *ScheduleService) Optimize(ctx context.Context, actor Actor, req *OptimizeRequest) (proposal *Proposal, err error) {
	ctx, span := startSpan(ctx, "schedule.optimize", attribute.String("schedule.actor", actor.UserID))
	defer func() {
		if proposal != nil {
			span.SetAttributes(
				attribute.String("schedule.proposal_id", proposal.ID),
				attribute.Int("schedule.initial_conflicts", proposal.Result.InitialConflicts),
				attribute.Int("schedule.changes", len(proposal.Result.Changes)),
				attribute.Int("schedule.unresolved_conflicts", len(proposal.Result.UnresolvedConflicts)),
			)
		}
		endSpan(span, err)
	}()

	if err := requireDispatch(actor); err != nil {
		return nil, err
	}

	opts := s.Options()
	cfg := opts.Optimizer
	if req.HorizonDays != nil {
		if *req.HorizonDays <= 0 {
			return nil, fmt.Errorf("%w: horizon_days must be positive", ErrValidation)
		}
		cfg.HorizonDays = *req.HorizonDays
	}
	if req.AllowCrossAssigneeReassignment != nil {
		cfg.AllowCrossAssigneeReassignment = *req.AllowCrossAssigneeReassignment
	}
	now := s.now().UTC()
	cfg.Now = now.Truncate(time.Minute)

	filter := schedule.TaskFilter{}
	var window *schedule.Window
	if req.From != nil && req.To != nil {
		w, err := schedule.NewWindow(req.From.UTC(), req.To.UTC())
		if err != nil {
			return nil, err
		}
		window = &w
		filter.From, filter.To = w.Start, w.End
	}

	tasks, err := s.store.ListActiveTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	var pinned []schedule.Task
	if window != nil {
		pinned, err = s.surrounding(ctx, *window, tasks, cfg)
		if err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("schedule.tasks", len(tasks)), attribute.Int("schedule.pinned_tasks", len(pinned)))
	res, err := s.resources(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result := schedule.OptimizeWithPinned(tasks, pinned, res, cfg)
	elapsed := time.Since(started)

	metrics.RecordConflictsDetected(result.InitialConflicts)
	metrics.RecordOptimizerRun(len(result.UnresolvedConflicts), elapsed.Seconds())

	proposal = &Proposal{
		ID:        uuid.New().String(),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(opts.ProposalTTL),
		Window:    window,
		Config:    cfg,
		Result:    result,
	}
	if err := s.saveProposal(ctx, proposal, opts.ProposalTTL); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"proposal_id": proposal.ID,
		"tasks":       len(tasks),
		"conflicts":   result.InitialConflicts,
		"changes":     len(result.Changes),
		"unresolved":  len(result.UnresolvedConflicts),
		"duration":    elapsed.String(),
	}).Info("schedule optimized")

	s.audit(ctx, actor, "optimize", "proposal", proposal.ID, map[string]interface{}{
		"conflicts":  result.InitialConflicts,
		"changes":    len(result.Changes),
		"unresolved": len(result.UnresolvedConflicts),
	})

	return proposal, nil
}

// surrounding 窗口外、但在平移范围内的任务,优化时作为固定占用
func (s *ScheduleService) surrounding(ctx context.Context, window schedule.Window, tasks []schedule.Task, cfg schedule.Config) ([]schedule.Task, error) {
	from, to := window.Start, window.End
	for _, t := range tasks {
		if t.Window.Start.Before(from) {
			from = t.Window.Start
		}
		if t.Window.End.After(to) {
			to = t.Window.End
		}
	}
	if !cfg.Now.IsZero() && cfg.Now.Before(from) {
		from = cfg.Now
	}
	days := cfg.HorizonDays
	if days <= 0 {
		days = schedule.DefaultHorizonDays
	}
	horizon := time.Duration(days) * 24 * time.Hour
	if !cfg.Now.IsZero() && cfg.Now.Add(horizon).After(to) {
		to = cfg.Now.Add(horizon)
	}

	around, err := s.store.ListActiveTasks(ctx, schedule.TaskFilter{
		From: from.Add(-horizon),
		To:   to.Add(horizon),
	})
	if err != nil {
		return nil, err
	}
	inWindow := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inWindow[t.ID] = true
	}
	pinned := make([]schedule.Task, 0, len(around))
	for _, t := range around {
		if !inWindow[t.ID] {
			pinned = append(pinned, t)
		}
	}
	return pinned, nil
}

// GetProposal 读取方案
func (s *ScheduleService) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	data, err := s.proposals.Get(ctx, id)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, schedule.NotFoundError("proposal", id)
		}
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}
	var p Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}
	return &p, nil
}

// DiscardProposal 丢弃方案
func (s *ScheduleService) DiscardProposal(ctx context.Context, actor Actor, id string) error {
	if err := requireDispatch(actor); err != nil {
		return err
	}
	if _, err := s.GetProposal(ctx, id); err != nil {
		return err
	}
	if err := s.proposals.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to discard proposal: %w", err)
	}
	s.audit(ctx, actor, "discard", "proposal", id, nil)
	return nil
}

// ApplyProposal 应用方案中被接受的变更
// 每个变更独立执行: 先确认目标资源仍然空闲,再按方案记录的版本号写入
func (s *ScheduleService) ApplyProposal(ctx context.Context, actor Actor, id string, req *ApplyRequest) (out *ApplyResult, err error) {
	ctx, span := startSpan(ctx, "schedule.apply_proposal",
		attribute.String("schedule.actor", actor.UserID),
		attribute.String("schedule.proposal_id", id),
	)
	defer func() {
		if out != nil {
			span.SetAttributes(
				attribute.Int("schedule.changes", len(out.Results)),
				attribute.Int("schedule.applied", out.Applied),
			)
		}
		endSpan(span, err)
	}()

	if err := requireDispatch(actor); err != nil {
		return nil, err
	}
	proposal, err := s.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, err := selectChanges(proposal.Result.Changes, req.TaskIDs)
	if err != nil {
		return nil, err
	}

	// 一个变更的目标可能是另一个变更腾出的位置,资源不可用的变更在后续轮次重试
	outcomes := make(map[string]ChangeResult, len(changes))
	pending := changes
	for len(pending) > 0 {
		var deferred []schedule.Change
		for _, ch := range pending {
			cr := s.applyChange(ctx, actor, proposal.ID, ch)
			outcomes[ch.TaskID] = cr
			if cr.Outcome == ChangeUnavailable {
				deferred = append(deferred, ch)
			}
		}
		if len(deferred) == len(pending) {
			break
		}
		pending = deferred
	}

	result := &ApplyResult{ProposalID: id, Results: make([]ChangeResult, 0, len(changes))}
	for _, ch := range changes {
		cr := outcomes[ch.TaskID]
		if cr.Outcome == ChangeApplied {
			result.Applied++
		}
		metrics.RecordReassignment("proposal_" + string(cr.Outcome))
		result.Results = append(result.Results, cr)
	}

	// 方案只能应用一次,未成功的变更需要重新优化
	if err := s.proposals.Delete(ctx, id); err != nil {
		s.logger.WithError(err).WithField("proposal_id", id).Warn("failed to delete applied proposal")
	}

	s.audit(ctx, actor, "apply", "proposal", id, result)
	return result, nil
}

func (s *ScheduleService) applyChange(ctx context.Context, actor Actor, proposalID string, ch schedule.Change) ChangeResult {
	cr := ChangeResult{TaskID: ch.TaskID}

	if err := s.checkPlacement(ctx, ch.TaskID, ch.From, ch.To); err != nil {
		cr.Outcome, cr.Error = outcomeOf(err), err.Error()
		return cr
	}

	patch := patchFor(ch.From, ch.To)
	updated, err := s.store.UpdateTask(ctx, ch.TaskID, patch, ch.ExpectedVersion)
	if err != nil {
		cr.Outcome, cr.Error = outcomeOf(err), err.Error()
		return cr
	}

	cr.Outcome = ChangeApplied
	cr.Task = &updated

	recordHistory(ctx, s.historyRepo, s.logger, ch.TaskID, "apply_proposal",
		schedule.DescribePlacement(ch.From), schedule.DescribePlacement(ch.To), ch.Reason, actor.UserID)
	emit(ctx, s.events, s.logger, integration.EventProposalApplied, ch.TaskID, actor, map[string]interface{}{
		"proposal_id": proposalID,
		"change":      ch,
		"version":     updated.Version,
	}, ch.From.MachineID, ch.To.MachineID)

	return cr
}

// Reassign 把任务改派到新的机器、工人或时间窗口
// 未设置 force 时目标资源在目标窗口必须空闲,版本冲突时重新读取后重试一次
func (s *ScheduleService) Reassign(ctx context.Context, actor Actor, taskID string, req *ReassignRequest) (task schedule.Task, err error) {
	ctx, span := startSpan(ctx, "schedule.reassign",
		attribute.String("schedule.actor", actor.UserID),
		attribute.String("schedule.task_id", taskID),
		attribute.Bool("schedule.force", req.Force),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(
				attribute.String("schedule.machine_id", task.MachineID),
				attribute.String("schedule.assignee_id", task.AssigneeID),
				attribute.Int64("schedule.version", task.Version),
			)
		}
		endSpan(span, err)
	}()

	if err := requireDispatch(actor); err != nil {
		return schedule.Task{}, err
	}
	if req.Start != nil && req.End != nil {
		if _, err := schedule.NewWindow(req.Start.UTC(), req.End.UTC()); err != nil {
			metrics.RecordReassignment(outcomeInvalid)
			return schedule.Task{}, err
		}
	}
	if req.MachineID == nil && req.AssigneeID == nil && req.Start == nil && req.End == nil {
		metrics.RecordReassignment(outcomeInvalid)
		return schedule.Task{}, fmt.Errorf("%w: machine_id, assignee_id, start or end is required", ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		task, err := s.reassignOnce(ctx, actor, taskID, req)
		if errors.Is(err, schedule.ErrConflict) && attempt == 0 {
			s.logger.WithField("task_id", taskID).Info("reassign hit version conflict, retrying")
			span.AddEvent("version conflict, retrying")
			continue
		}
		metrics.RecordReassignment(reassignOutcome(err, req.Force))
		return task, err
	}
}

func (s *ScheduleService) reassignOnce(ctx context.Context, actor Actor, taskID string, req *ReassignRequest) (schedule.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return schedule.Task{}, err
	}
	if task.Status.IsTerminal() {
		return schedule.Task{}, fmt.Errorf("%w: task %s is %s", schedule.ErrInvalidTransition, task.ID, task.Status)
	}

	from := schedule.Placement{MachineID: task.MachineID, AssigneeID: task.AssigneeID, Window: task.Window}
	to, err := targetPlacement(task, req)
	if err != nil {
		return schedule.Task{}, err
	}
	if to.Equal(from) {
		return schedule.Task{}, fmt.Errorf("%w: target equals the current assignment", ErrValidation)
	}

	if req.Force {
		if err := s.checkExists(ctx, to); err != nil {
			return schedule.Task{}, err
		}
	} else if err := s.checkPlacement(ctx, task.ID, from, to); err != nil {
		var unavailable *schedule.UnavailableError
		if errors.As(err, &unavailable) {
			unavailable.Suggestions = s.alternatives(ctx, task, to)
		}
		return schedule.Task{}, err
	}

	updated, err := s.store.UpdateTask(ctx, task.ID, patchFor(from, to), task.Version)
	if err != nil {
		return schedule.Task{}, err
	}

	reason := req.Reason
	if req.Force {
		reason = "forced: " + reason
	}
	recordHistory(ctx, s.historyRepo, s.logger, task.ID, "reassign",
		schedule.DescribePlacement(from), schedule.DescribePlacement(to), reason, actor.UserID)
	s.audit(ctx, actor, "reassign", "task", task.ID, map[string]interface{}{
		"from":    from,
		"to":      to,
		"force":   req.Force,
		"reason":  req.Reason,
		"version": updated.Version,
	})
	emit(ctx, s.events, s.logger, integration.EventTaskReassigned, task.ID, actor, map[string]interface{}{
		"from":    from,
		"to":      to,
		"force":   req.Force,
		"version": updated.Version,
	}, from.MachineID, to.MachineID)

	return updated, nil
}

// checkExists 目标机器和工人必须存在
func (s *ScheduleService) checkExists(ctx context.Context, to schedule.Placement) error {
	if to.MachineID != "" {
		if _, err := s.store.MachineAvailability(ctx, to.MachineID, to.Window); err != nil {
			return err
		}
	}
	if to.AssigneeID != "" {
		if _, err := s.store.AssigneeAvailability(ctx, to.AssigneeID, to.Window); err != nil {
			return err
		}
	}
	return nil
}

// checkPlacement 发生变化的机器和工人在目标窗口可用且没有其他任务
// 窗口不变时,未更换的资源不再检查,原有冲突不阻止只换另一个资源
func (s *ScheduleService) checkPlacement(ctx context.Context, taskID string, from, to schedule.Placement) error {
	sameWindow := from.Window.Equal(to.Window)
	if to.MachineID != "" && !(sameWindow && to.MachineID == from.MachineID) {
		av, err := s.store.MachineAvailability(ctx, to.MachineID, to.Window)
		if err != nil {
			return err
		}
		if err := unavailable(av, taskID, "machine"); err != nil {
			return err
		}
	}
	if to.AssigneeID != "" && !(sameWindow && to.AssigneeID == from.AssigneeID) {
		av, err := s.store.AssigneeAvailability(ctx, to.AssigneeID, to.Window)
		if err != nil {
			return err
		}
		if err := unavailable(av, taskID, "assignee"); err != nil {
			return err
		}
	}
	return nil
}

// unavailable 忽略任务自身占用后判断资源是否空闲
func unavailable(av schedule.Availability, taskID, kind string) error {
	if !av.Schedulable {
		return &schedule.UnavailableError{
			Resource: av.Resource,
			Window:   av.Window,
			Reason:   kind + " is not available for scheduling",
		}
	}
	busy := make([]schedule.BusyInterval, 0, len(av.Busy))
	for _, b := range av.Busy {
		if b.TaskID != taskID {
			busy = append(busy, b)
		}
	}
	if len(busy) == 0 {
		return nil
	}
	return &schedule.UnavailableError{
		Resource: av.Resource,
		Window:   av.Window,
		Reason:   fmt.Sprintf("%s is booked by %d other task(s)", kind, len(busy)),
		Busy:     busy,
	}
}

// alternatives 用优化器的搜索顺序寻找附近可行的安排
func (s *ScheduleService) alternatives(ctx context.Context, task schedule.Task, to schedule.Placement) []string {
	cfg := s.Options().Optimizer
	cfg.Now = s.now().UTC().Truncate(time.Minute)
	horizon := time.Duration(cfg.HorizonDays) * 24 * time.Hour

	others, err := s.store.ListActiveTasks(ctx, schedule.TaskFilter{
		From: to.Window.Start.Add(-horizon),
		To:   to.Window.End.Add(horizon),
	})
	if err != nil {
		s.logger.WithError(err).WithField("task_id", task.ID).Warn("failed to load tasks for suggestions")
		return nil
	}
	res, err := s.resources(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("task_id", task.ID).Warn("failed to load resources for suggestions")
		return nil
	}

	usable := func(p schedule.Placement) bool {
		for _, m := range res.Machines {
			if m.ID == p.MachineID && !m.Status.Schedulable() {
				return false
			}
		}
		for _, a := range res.Assignees {
			if a.ID == p.AssigneeID && !a.Active {
				return false
			}
		}
		return true
	}

	found := schedule.FindAlternatives(task, to, others, res, cfg, 4*maxAlternatives)
	alts := make([]schedule.Placement, 0, maxAlternatives)
	for _, p := range found {
		if usable(p) {
			alts = append(alts, p)
		}
		if len(alts) == maxAlternatives {
			break
		}
	}
	return schedule.DescribeAlternatives(task.ID, to, alts)
}

func (s *ScheduleService) resources(ctx context.Context) (schedule.Resources, error) {
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return schedule.Resources{}, err
	}
	assignees, err := s.store.ListAssignees(ctx)
	if err != nil {
		return schedule.Resources{}, err
	}
	return schedule.Resources{Machines: machines, Assignees: assignees}, nil
}

func (s *ScheduleService) saveProposal(ctx context.Context, p *Proposal, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode proposal: %w", err)
	}
	if err := s.proposals.Set(ctx, p.ID, data, ttl); err != nil {
		return fmt.Errorf("failed to store proposal: %w", err)
	}
	return nil
}

func (s *ScheduleService) audit(ctx context.Context, actor Actor, action, resourceType, resourceID string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, actor.UserID, action, resourceType, resourceID, details); err != nil {
		s.logger.WithError(err).WithField("resource_id", resourceID).Warn("failed to record audit log")
	}
}

// targetPlacement 根据请求计算目标安排
func targetPlacement(task schedule.Task, req *ReassignRequest) (schedule.Placement, error) {
	to := schedule.Placement{MachineID: task.MachineID, AssigneeID: task.AssigneeID, Window: task.Window}
	if req.MachineID != nil {
		to.MachineID = *req.MachineID
	}
	if req.AssigneeID != nil {
		to.AssigneeID = *req.AssigneeID
	}
	switch {
	case req.Start != nil && req.End != nil:
		to.Window = schedule.Window{Start: req.Start.UTC(), End: req.End.UTC()}
	case req.Start != nil:
		to.Window = schedule.Window{Start: req.Start.UTC(), End: req.Start.UTC().Add(task.Window.Duration())}
	case req.End != nil:
		to.Window = schedule.Window{Start: task.Window.Start, End: req.End.UTC()}
	}
	if err := to.Window.Validate(); err != nil {
		return schedule.Placement{}, err
	}
	return to, nil
}

// patchFor 只包含发生变化的字段
func patchFor(from, to schedule.Placement) schedule.TaskPatch {
	var patch schedule.TaskPatch
	if to.MachineID != from.MachineID {
		m := to.MachineID
		patch.MachineID = &m
	}
	if to.AssigneeID != from.AssigneeID {
		a := to.AssigneeID
		patch.AssigneeID = &a
	}
	if !to.Window.Equal(from.Window) {
		w := to.Window
		patch.Window = &w
	}
	return patch
}

// selectChanges 按任务 ID 选出要应用的变更,保持方案中的顺序
func selectChanges(changes []schedule.Change, taskIDs []string) ([]schedule.Change, error) {
	if len(taskIDs) == 0 {
		return changes, nil
	}
	wanted := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = false
	}
	selected := make([]schedule.Change, 0, len(taskIDs))
	for _, ch := range changes {
		if _, ok := wanted[ch.TaskID]; ok {
			wanted[ch.TaskID] = true
			selected = append(selected, ch)
		}
	}
	for _, id := range taskIDs {
		if !wanted[id] {
			return nil, fmt.Errorf("%w: task %q has no change in this proposal", ErrValidation, id)
		}
	}
	return selected, nil
}

func outcomeOf(err error) ChangeOutcome {
	switch {
	case errors.Is(err, schedule.ErrConflict):
		return ChangeConflict
	case errors.Is(err, schedule.ErrResourceUnavailable):
		return ChangeUnavailable
	case errors.Is(err, schedule.ErrNotFound):
		return ChangeNotFound
	}
	return ChangeFailed
}

func reassignOutcome(err error, force bool) string {
	switch {
	case err == nil && force:
		return outcomeForced
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, schedule.ErrConflict):
		return outcomeConflict
	case errors.Is(err, schedule.ErrResourceUnavailable):
		return outcomeUnavailable
	case errors.Is(err, schedule.ErrNotFound):
		return outcomeNotFound
	}
	return outcomeInvalid
}
