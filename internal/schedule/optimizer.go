package schedule

import (
	"math"
	"sort"
	"time"
)

// 优化器默认配置
const (
	DefaultHorizonDays            = 30
	DefaultMinDisplacementMinutes = 15
	DefaultMaxIterations          = 20000
)

// Config 优化器配置
type Config struct {
	HorizonDays                    int       `json:"horizon_days"`
	AllowCrossAssigneeReassignment bool      `json:"allow_cross_assignee_reassignment"`
	MinDisplacementMinutes         int       `json:"min_displacement_minutes"`
	MaxIterations                  int       `json:"max_iterations"`
	Now                            time.Time `json:"now,omitempty"` // 非零时不会把任务挪到该时刻之前
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		HorizonDays:            DefaultHorizonDays,
		MinDisplacementMinutes: DefaultMinDisplacementMinutes,
		MaxIterations:          DefaultMaxIterations,
	}
}

// withDefaults 零值字段使用默认值
func (c Config) withDefaults() Config {
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.MinDisplacementMinutes <= 0 {
		c.MinDisplacementMinutes = DefaultMinDisplacementMinutes
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	return c
}

func (c Config) horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func (c Config) step() time.Duration {
	return time.Duration(c.MinDisplacementMinutes) * time.Minute
}

// ChangeKind 变更类型
type ChangeKind string

const (
	ChangeReschedule          ChangeKind = "reschedule"
	ChangeMoveMachine         ChangeKind = "move_machine"
	ChangeMoveAssignee        ChangeKind = "move_assignee"
	ChangeMoveMachineAssignee ChangeKind = "move_machine_assignee"
)

// Placement 任务的资源和时间安排
type Placement struct {
	MachineID  string `json:"machine_id,omitempty"`
	AssigneeID string `json:"assignee_id,omitempty"`
	Window     Window `json:"window"`
}

// placementOf 任务当前的安排
func placementOf(t Task) Placement {
	return Placement{MachineID: t.MachineID, AssigneeID: t.AssigneeID, Window: t.Window}
}

// Equal 比较两个安排
func (p Placement) Equal(o Placement) bool {
	return p.MachineID == o.MachineID && p.AssigneeID == o.AssigneeID && p.Window.Equal(o.Window)
}

// Change 单个任务的调整建议,可以单独接受或拒绝
type Change struct {
	TaskID              string     `json:"task_id"`
	Kind                ChangeKind `json:"kind"`
	From                Placement  `json:"from"`
	To                  Placement  `json:"to"`
	DisplacementMinutes int        `json:"displacement_minutes"`
	ExpectedVersion     int64      `json:"expected_version"`
	Reason              string     `json:"reason"`
}

// Result 优化结果
type Result struct {
	ProposedTasks        []Task     `json:"proposed_tasks"`
	Changes              []Change   `json:"changes"`
	InitialConflicts     int        `json:"initial_conflicts"`
	UnresolvedConflicts  []Conflict `json:"unresolved_conflicts"`
	Suggestions          []string   `json:"suggestions"`
	EstimatedImprovement float64    `json:"estimated_improvement"`
}

// Optimize 为冲突任务生成调整方案
// 高优先级任务保留原位置,低优先级任务依次尝试: 同资源平移、同类型替代机器、替代工人
// 不修改输入,相同输入和配置总是得到相同输出
func Optimize(tasks []Task, res Resources, cfg Config) Result {
	return OptimizeWithPinned(tasks, nil, res, cfg)
}

// OptimizeWithPinned 只调整 tasks 中的任务,pinned 中的任务位置固定但占用资源
// 结果中的冲突只包含至少涉及一个可调整任务的冲突
func OptimizeWithPinned(tasks, pinned []Task, res Resources, cfg Config) Result {
	cfg = cfg.withDefaults()

	movable := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		movable[t.ID] = true
	}
	fixed := make([]Task, 0, len(pinned))
	for _, t := range pinned {
		if !movable[t.ID] && t.Active() && t.Window.Validate() == nil {
			fixed = append(fixed, t)
		}
	}

	initial := involving(DetectConflicts(withFixed(tasks, fixed)), movable)
	firstConflict := make(map[string]Conflict)
	for _, c := range initial {
		if _, ok := firstConflict[c.TaskA]; !ok {
			firstConflict[c.TaskA] = c
		}
		if _, ok := firstConflict[c.TaskB]; !ok {
			firstConflict[c.TaskB] = c
		}
	}

	p := newPlanner(res, cfg)
	for _, t := range fixed {
		p.place(t.ID, placementOf(t))
	}

	// 先放置不涉及冲突的任务
	conflicted := make([]Task, 0, len(firstConflict))
	for _, t := range tasks {
		if !t.Active() || t.Window.Validate() != nil {
			continue
		}
		if _, ok := firstConflict[t.ID]; ok {
			conflicted = append(conflicted, t)
			continue
		}
		p.place(t.ID, placementOf(t))
	}

	sort.SliceStable(conflicted, func(i, j int) bool {
		a, b := conflicted[i], conflicted[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.Window.Start.Equal(b.Window.Start) {
			return a.Window.Start.Before(b.Window.Start)
		}
		return a.ID < b.ID
	})

	moved := make(map[string]Change)
	for _, t := range conflicted {
		current := placementOf(t)
		if p.feasible(t.ID, current) {
			p.place(t.ID, current)
			continue
		}
		found := p.search(t, 1)
		if len(found) == 0 {
			// 无可行方案时保留原位置,由最终检测报告为未解决
			p.place(t.ID, current)
			continue
		}
		target := found[0]
		p.place(t.ID, target)
		moved[t.ID] = newChange(t, target, firstConflict[t.ID])
	}

	proposed := make([]Task, len(tasks))
	changes := make([]Change, 0, len(moved))
	for i, t := range tasks {
		proposed[i] = t
		c, ok := moved[t.ID]
		if !ok {
			continue
		}
		proposed[i].MachineID = c.To.MachineID
		proposed[i].AssigneeID = c.To.AssigneeID
		proposed[i].Window = c.To.Window
		changes = append(changes, c)
	}

	unresolved := involving(DetectConflicts(withFixed(proposed, fixed)), movable)

	suggestions := make([]string, 0, len(changes)+len(unresolved))
	for _, c := range changes {
		suggestions = append(suggestions, describeChange(c))
	}
	for _, c := range unresolved {
		suggestions = append(suggestions, describeUnresolved(c, cfg))
	}

	return Result{
		ProposedTasks:        proposed,
		Changes:              changes,
		InitialConflicts:     len(initial),
		UnresolvedConflicts:  unresolved,
		Suggestions:          suggestions,
		EstimatedImprovement: improvement(len(initial), len(unresolved)),
	}
}

func withFixed(tasks, fixed []Task) []Task {
	if len(fixed) == 0 {
		return tasks
	}
	all := make([]Task, 0, len(tasks)+len(fixed))
	all = append(all, tasks...)
	return append(all, fixed...)
}

// involving 过滤出涉及可调整任务的冲突
func involving(conflicts []Conflict, movable map[string]bool) []Conflict {
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		if movable[c.TaskA] || movable[c.TaskB] {
			out = append(out, c)
		}
	}
	return out
}

// FindAlternatives 在其余任务固定的前提下为任务寻找最多 limit 个可行安排
// 搜索从 from 出发,顺序与 Optimize 相同
func FindAlternatives(task Task, from Placement, others []Task, res Resources, cfg Config, limit int) []Placement {
	cfg = cfg.withDefaults()
	p := newPlanner(res, cfg)
	for _, t := range others {
		if t.ID == task.ID || !t.Active() || t.Window.Validate() != nil {
			continue
		}
		p.place(t.ID, placementOf(t))
	}
	task.MachineID = from.MachineID
	task.AssigneeID = from.AssigneeID
	task.Window = from.Window
	return p.search(task, limit)
}

func newChange(t Task, to Placement, cause Conflict) Change {
	from := placementOf(t)
	kind := ChangeReschedule
	machineMoved := from.MachineID != to.MachineID
	assigneeMoved := from.AssigneeID != to.AssigneeID
	switch {
	case machineMoved && assigneeMoved:
		kind = ChangeMoveMachineAssignee
	case machineMoved:
		kind = ChangeMoveMachine
	case assigneeMoved:
		kind = ChangeMoveAssignee
	}

	other := cause.TaskA
	if other == t.ID {
		other = cause.TaskB
	}

	return Change{
		TaskID:              t.ID,
		Kind:                kind,
		From:                from,
		To:                  to,
		DisplacementMinutes: int(math.Abs(to.Window.Start.Sub(from.Window.Start).Minutes())),
		ExpectedVersion:     t.Version,
		Reason:              "resolves overlap with task " + other + " on " + cause.Resource.String(),
	}
}

// improvement 已消除冲突的百分比,保留一位小数
func improvement(initial, remaining int) float64 {
	if initial == 0 {
		return 0
	}
	pct := float64(initial-remaining) / float64(initial) * 100
	if pct < 0 {
		pct = 0
	}
	return math.Round(pct*10) / 10
}

// planner 保存已放置任务的占用情况
type planner struct {
	cfg        Config
	machines   map[string]Machine
	assignees  map[string]Assignee
	machineIDs []string
	assignIDs  []string
	placed     map[Resource][]BusyInterval
	iterations int
}

func newPlanner(res Resources, cfg Config) *planner {
	p := &planner{
		cfg:       cfg,
		machines:  make(map[string]Machine, len(res.Machines)),
		assignees: make(map[string]Assignee, len(res.Assignees)),
		placed:    make(map[Resource][]BusyInterval),
	}
	for _, m := range res.Machines {
		p.machines[m.ID] = m
		p.machineIDs = append(p.machineIDs, m.ID)
	}
	for _, a := range res.Assignees {
		p.assignees[a.ID] = a
		p.assignIDs = append(p.assignIDs, a.ID)
	}
	sort.Strings(p.machineIDs)
	sort.Strings(p.assignIDs)
	return p
}

func (p *planner) exhausted() bool {
	return p.iterations >= p.cfg.MaxIterations
}

func (p *planner) place(taskID string, pl Placement) {
	if pl.MachineID != "" {
		r := Resource{Kind: ResourceMachine, ID: pl.MachineID}
		p.placed[r] = append(p.placed[r], BusyInterval{TaskID: taskID, Window: pl.Window})
	}
	if pl.AssigneeID != "" {
		r := Resource{Kind: ResourceAssignee, ID: pl.AssigneeID}
		p.placed[r] = append(p.placed[r], BusyInterval{TaskID: taskID, Window: pl.Window})
	}
}

// feasible 判断安排是否与已放置任务冲突
func (p *planner) feasible(taskID string, pl Placement) bool {
	p.iterations++
	return p.free(taskID, Resource{Kind: ResourceMachine, ID: pl.MachineID}, pl.Window) &&
		p.free(taskID, Resource{Kind: ResourceAssignee, ID: pl.AssigneeID}, pl.Window)
}

func (p *planner) free(taskID string, r Resource, w Window) bool {
	if r.ID == "" {
		return true
	}
	for _, b := range p.placed[r] {
		if b.TaskID != taskID && b.Window.Overlaps(w) {
			return false
		}
	}
	return true
}

// search 按顺序枚举可行安排,最多返回 limit 个
func (p *planner) search(t Task, limit int) []Placement {
	found := make([]Placement, 0, limit)
	try := func(pl Placement) bool {
		if p.exhausted() {
			return true
		}
		if p.feasible(t.ID, pl) {
			found = append(found, pl)
		}
		return len(found) >= limit
	}

	for _, w := range p.shiftCandidates(t) {
		if try(Placement{MachineID: t.MachineID, AssigneeID: t.AssigneeID, Window: w}) {
			return found
		}
	}

	altMachines := p.alternateMachines(t.MachineID)
	for _, m := range altMachines {
		if try(Placement{MachineID: m, AssigneeID: t.AssigneeID, Window: t.Window}) {
			return found
		}
	}

	if !p.cfg.AllowCrossAssigneeReassignment {
		return found
	}
	altAssignees := p.alternateAssignees(t.AssigneeID)
	for _, a := range altAssignees {
		if try(Placement{MachineID: t.MachineID, AssigneeID: a, Window: t.Window}) {
			return found
		}
	}
	for _, m := range altMachines {
		for _, a := range altAssignees {
			if try(Placement{MachineID: m, AssigneeID: a, Window: t.Window}) {
				return found
			}
		}
	}
	return found
}

type shift struct {
	d       time.Duration
	earlier bool
}

// shiftCandidates 同资源上的平移候选窗口,按位移从小到大,相同位移时先向后
// 最小可行位移一定是把窗口边界对齐到某个占用区间边界后向上取整到步长
func (p *planner) shiftCandidates(t Task) []Window {
	step := p.cfg.step()
	orig := t.Window

	busy := make([]BusyInterval, 0)
	if t.MachineID != "" {
		busy = append(busy, p.placed[Resource{Kind: ResourceMachine, ID: t.MachineID}]...)
	}
	if t.AssigneeID != "" {
		busy = append(busy, p.placed[Resource{Kind: ResourceAssignee, ID: t.AssigneeID}]...)
	}

	shifts := make([]shift, 0, 2*len(busy))
	for _, b := range busy {
		if b.TaskID == t.ID {
			continue
		}
		if d := ceilStep(b.Window.End.Sub(orig.Start), step); d > 0 {
			shifts = append(shifts, shift{d: d})
		}
		if d := ceilStep(orig.End.Sub(b.Window.Start), step); d > 0 {
			shifts = append(shifts, shift{d: d, earlier: true})
		}
	}
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].d != shifts[j].d {
			return shifts[i].d < shifts[j].d
		}
		return !shifts[i].earlier && shifts[j].earlier
	})

	lower, upper := p.bounds(orig)
	windows := make([]Window, 0, len(shifts))
	var last *shift
	for i := range shifts {
		s := shifts[i]
		if last != nil && *last == s {
			continue
		}
		last = &shifts[i]
		if s.d > p.cfg.horizon() {
			break
		}
		d := s.d
		if s.earlier {
			d = -d
		}
		w := orig.Shift(d)
		if w.Start.Before(lower) || w.End.After(upper) {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

// bounds 平移的搜索范围
func (p *planner) bounds(orig Window) (time.Time, time.Time) {
	if !p.cfg.Now.IsZero() {
		return p.cfg.Now, p.cfg.Now.Add(p.cfg.horizon())
	}
	return orig.Start.Add(-p.cfg.horizon()), orig.Start.Add(p.cfg.horizon())
}

// alternateMachines 同类型、产能不低于当前机器且状态可用的机器,按 ID 升序
func (p *planner) alternateMachines(current string) []string {
	cur, ok := p.machines[current]
	if !ok {
		return nil
	}
	ids := make([]string, 0)
	for _, id := range p.machineIDs {
		m := p.machines[id]
		if id == current || m.Type != cur.Type || m.Capacity < cur.Capacity || !m.Status.Schedulable() {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// alternateAssignees 技能覆盖当前工人的在岗工人,按 ID 升序
func (p *planner) alternateAssignees(current string) []string {
	cur, ok := p.assignees[current]
	if !ok {
		return nil
	}
	ids := make([]string, 0)
	for _, id := range p.assignIDs {
		a := p.assignees[id]
		if id == current || !a.Active || !a.HasSkills(cur.Skills) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ceilStep 向上取整到步长
func ceilStep(d, step time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return ((d + step - 1) / step) * step
}
