package schedule

import (
	"container/heap"
	"fmt"
	"sort"
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict 同一资源上时间窗口重叠的一对任务
// TaskA 在扫描顺序中位于 TaskB 之前
type Conflict struct {
	TaskA    string   `json:"task_a"`
	TaskB    string   `json:"task_b"`
	Resource Resource `json:"resource"`
	Overlap  Window   `json:"overlap"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// Involves 判断冲突是否涉及该任务
func (c Conflict) Involves(taskID string) bool {
	return c.TaskA == taskID || c.TaskB == taskID
}

// severityOf 按两个任务中较高的优先级确定严重程度
func severityOf(a, b Priority) Severity {
	rank := a.Rank()
	if b.Rank() > rank {
		rank = b.Rank()
	}
	switch {
	case rank >= PriorityHigh.Rank():
		return SeverityHigh
	case rank == PriorityMedium.Rank():
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// sweepLess 扫描顺序: 开始时间升序,优先级降序,ID 升序
func sweepLess(a, b Task) bool {
	if !a.Window.Start.Equal(b.Window.Start) {
		return a.Window.Start.Before(b.Window.Start)
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.ID < b.ID
}

// openInterval 扫描过程中尚未结束的区间
type openInterval struct {
	task Task
	pos  int
}

// openHeap 按结束时间排序的最小堆
type openHeap []openInterval

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if !h[i].task.Window.End.Equal(h[j].task.Window.End) {
		return h[i].task.Window.End.Before(h[j].task.Window.End)
	}
	return h[i].pos < h[j].pos
}

func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *openHeap) Push(x any) {
	*h = append(*h, x.(openInterval))
}

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// rankedConflict 带排序信息的冲突
type rankedConflict struct {
	Conflict
	posA, posB int
}

// DetectConflicts 检测所有非终态任务在机器和工人维度上的时间冲突
// 每个资源内按开始时间排序后做区间扫描,复杂度 O(n log n + k)
func DetectConflicts(tasks []Task) []Conflict {
	groups := groupByResource(tasks)

	ranked := make([]rankedConflict, 0)
	for res, group := range groups {
		ranked = append(ranked, sweep(res, group)...)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Resource.Kind != b.Resource.Kind {
			return a.Resource.Kind == ResourceMachine
		}
		if a.Resource.ID != b.Resource.ID {
			return a.Resource.ID < b.Resource.ID
		}
		if a.posA != b.posA {
			return a.posA < b.posA
		}
		return a.posB < b.posB
	})

	conflicts := make([]Conflict, 0, len(ranked))
	for _, rc := range ranked {
		conflicts = append(conflicts, rc.Conflict)
	}
	return conflicts
}

// groupByResource 按资源分组,忽略终态任务和非法窗口
func groupByResource(tasks []Task) map[Resource][]Task {
	groups := make(map[Resource][]Task)
	for _, t := range tasks {
		if !t.Active() || t.Window.Validate() != nil {
			continue
		}
		if t.MachineID != "" {
			res := Resource{Kind: ResourceMachine, ID: t.MachineID}
			groups[res] = append(groups[res], t)
		}
		if t.AssigneeID != "" {
			res := Resource{Kind: ResourceAssignee, ID: t.AssigneeID}
			groups[res] = append(groups[res], t)
		}
	}
	return groups
}

// sweep 单个资源上的区间扫描
func sweep(res Resource, group []Task) []rankedConflict {
	sorted := make([]Task, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sweepLess(sorted[i], sorted[j])
	})

	found := make([]rankedConflict, 0)
	open := &openHeap{}
	for pos, t := range sorted {
		// 半开区间: 结束时间 <= 当前开始时间的区间不再重叠
		for open.Len() > 0 && !(*open)[0].task.Window.End.After(t.Window.Start) {
			heap.Pop(open)
		}
		for _, o := range *open {
			overlap, _ := o.task.Window.Intersect(t.Window)
			found = append(found, rankedConflict{
				Conflict: Conflict{
					TaskA:    o.task.ID,
					TaskB:    t.ID,
					Resource: res,
					Overlap:  overlap,
					Severity: severityOf(o.task.Priority, t.Priority),
					Reason:   conflictReason(o.task, t, res, overlap),
				},
				posA: o.pos,
				posB: pos,
			})
		}
		heap.Push(open, openInterval{task: t, pos: pos})
	}
	return found
}

func conflictReason(a, b Task, res Resource, overlap Window) string {
	return fmt.Sprintf("tasks %s (%s) and %s (%s) both use %s %s during %s",
		a.ID, a.Priority, b.ID, b.Priority, res.Kind, res.ID, overlap)
}
