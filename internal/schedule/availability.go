package schedule

import (
	"sort"
)

// BusyInterval 资源被某个任务占用的区间
type BusyInterval struct {
	TaskID string `json:"task_id"`
	Window Window `json:"window"`
}

// Availability 资源在查询窗口内的忙闲情况
type Availability struct {
	Resource    Resource       `json:"resource"`
	Window      Window         `json:"window"`
	Schedulable bool           `json:"schedulable"`
	Busy        []BusyInterval `json:"busy"`
	Free        []Window       `json:"free"`
}

// IsFree 判断 w 在该资源上是否完全空闲
func (a Availability) IsFree(w Window) bool {
	if !a.Schedulable {
		return false
	}
	for _, b := range a.Busy {
		if b.Window.Overlaps(w) {
			return false
		}
	}
	return true
}

// ComputeAvailability 根据占用任务计算 window 内的忙闲区间
// 终态任务和 excludeTaskID 对应的任务不计入占用
func ComputeAvailability(res Resource, window Window, schedulable bool, tasks []Task, excludeTaskID string) Availability {
	busy := make([]BusyInterval, 0)
	for _, t := range tasks {
		if !t.Active() || t.ID == excludeTaskID {
			continue
		}
		if !holds(t, res) {
			continue
		}
		clipped, ok := t.Window.Intersect(window)
		if !ok {
			continue
		}
		busy = append(busy, BusyInterval{TaskID: t.ID, Window: clipped})
	}
	sort.SliceStable(busy, func(i, j int) bool {
		if !busy[i].Window.Start.Equal(busy[j].Window.Start) {
			return busy[i].Window.Start.Before(busy[j].Window.Start)
		}
		return busy[i].TaskID < busy[j].TaskID
	})

	free := make([]Window, 0)
	if schedulable {
		cursor := window.Start
		for _, b := range busy {
			if b.Window.Start.After(cursor) {
				free = append(free, Window{Start: cursor, End: b.Window.Start})
			}
			if b.Window.End.After(cursor) {
				cursor = b.Window.End
			}
		}
		if window.End.After(cursor) {
			free = append(free, Window{Start: cursor, End: window.End})
		}
	}

	return Availability{
		Resource:    res,
		Window:      window,
		Schedulable: schedulable,
		Busy:        busy,
		Free:        free,
	}
}

// holds 任务是否占用该资源
func holds(t Task, res Resource) bool {
	switch res.Kind {
	case ResourceMachine:
		return t.MachineID != "" && t.MachineID == res.ID
	case ResourceAssignee:
		return t.AssigneeID != "" && t.AssigneeID == res.ID
	}
	return false
}
