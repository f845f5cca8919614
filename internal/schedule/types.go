package schedule

import (
	"fmt"
	"time"
)

// Status 任务状态
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDelayed    Status = "delayed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal 已完成或已取消的任务不再占用资源
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid 判断状态是否合法
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusDelayed, StatusCancelled:
		return true
	}
	return false
}

// transitions 允许的状态转换
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusDelayed, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusDelayed, StatusCancelled},
	StatusDelayed:    {StatusScheduled, StatusInProgress, StatusCancelled},
}

// CanTransition 判断是否允许从 from 转换到 to
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Priority 任务优先级
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank 优先级权重,数值越大越重要
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid 判断优先级是否合法
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Window 半开时间区间 [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow 创建时间窗口,end 必须晚于 start
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate 校验窗口
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps [s1,e1) 与 [s2,e2) 重叠当且仅当 s1 < e2 且 s2 < e1
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Intersect 返回两个窗口的交集,不相交时 ok 为 false
func (w Window) Intersect(o Window) (Window, bool) {
	if !w.Overlaps(o) {
		return Window{}, false
	}
	start := w.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := w.End
	if o.End.Before(end) {
		end = o.End
	}
	return Window{Start: start, End: end}, true
}

// Duration 窗口长度
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Shift 整体平移
func (w Window) Shift(d time.Duration) Window {
	return Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}

// Equal 比较两个窗口
func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Task 排产任务
type Task struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	MachineID        string    `json:"machine_id,omitempty"`
	ComponentID      string    `json:"component_id,omitempty"`
	OrderID          string    `json:"order_id,omitempty"`
	AssigneeID       string    `json:"assignee_id,omitempty"`
	Window           Window    `json:"window"`
	Status           Status    `json:"status"`
	Priority         Priority  `json:"priority"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	ActualMinutes    int       `json:"actual_minutes,omitempty"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Active 任务是否占用资源
func (t Task) Active() bool {
	return !t.Status.IsTerminal()
}

// ResourceKind 资源类型
type ResourceKind string

const (
	ResourceMachine  ResourceKind = "machine"
	ResourceAssignee ResourceKind = "assignee"
)

// Resource 互斥资源: 机器或工人
type Resource struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

func (r Resource) String() string {
	return string(r.Kind) + ":" + r.ID
}

// MachineStatus 机器状态
type MachineStatus string

const (
	MachineOperational MachineStatus = "operational"
	MachineIdle        MachineStatus = "idle"
	MachineMaintenance MachineStatus = "maintenance"
	MachineOffline     MachineStatus = "offline"
)

// Schedulable 机器是否可以承接任务
func (s MachineStatus) Schedulable() bool {
	return s == MachineOperational || s == MachineIdle
}

// Valid 判断机器状态是否合法
func (s MachineStatus) Valid() bool {
	switch s {
	case MachineOperational, MachineIdle, MachineMaintenance, MachineOffline:
		return true
	}
	return false
}

// Machine 机器
type Machine struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Capacity float64       `json:"capacity"` // 每小时产能
	Status   MachineStatus `json:"status"`
}

// Assignee 工人
type Assignee struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Skills []string `json:"skills,omitempty"`
	Active bool     `json:"active"`
}

// HasSkills 判断工人是否具备全部技能
func (a Assignee) HasSkills(required []string) bool {
	have := make(map[string]struct{}, len(a.Skills))
	for _, s := range a.Skills {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// Resources 优化器可用的资源集合
type Resources struct {
	Machines  []Machine  `json:"machines"`
	Assignees []Assignee `json:"assignees"`
}
