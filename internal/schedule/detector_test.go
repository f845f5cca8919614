package schedule_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// at 返回基准日的 hh:mm
func at(hour, minute int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func window(startHour, endHour int) schedule.Window {
	return schedule.Window{Start: at(startHour, 0), End: at(endHour, 0)}
}

func task(id, machine, assignee string, w schedule.Window, p schedule.Priority) schedule.Task {
	return schedule.Task{
		ID:         id,
		Title:      "task " + id,
		MachineID:  machine,
		AssigneeID: assignee,
		Window:     w,
		Status:     schedule.StatusScheduled,
		Priority:   p,
		Version:    1,
	}
}

// pairKey 无序任务对加资源的唯一键
func pairKey(a, b string, r schedule.Resource) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s|%s", r, a, b)
}

func conflictKeys(conflicts []schedule.Conflict) []string {
	keys := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		keys = append(keys, pairKey(c.TaskA, c.TaskB, c.Resource))
	}
	sort.Strings(keys)
	return keys
}

// bruteForce O(n²) 参考实现
func bruteForce(tasks []schedule.Task) []string {
	keys := make([]string, 0)
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			a, b := tasks[i], tasks[j]
			if !a.Active() || !b.Active() || !a.Window.Overlaps(b.Window) {
				continue
			}
			if a.MachineID != "" && a.MachineID == b.MachineID {
				keys = append(keys, pairKey(a.ID, b.ID, schedule.Resource{Kind: schedule.ResourceMachine, ID: a.MachineID}))
			}
			if a.AssigneeID != "" && a.AssigneeID == b.AssigneeID {
				keys = append(keys, pairKey(a.ID, b.ID, schedule.Resource{Kind: schedule.ResourceAssignee, ID: a.AssigneeID}))
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// TestDetectConflicts_Scenario 测试同一机器上的重叠任务
func TestDetectConflicts_Scenario(t *testing.T) {
	tasks := []schedule.Task{
		task("A", "M1", "", window(9, 11), schedule.PriorityHigh),
		task("B", "M1", "", window(10, 12), schedule.PriorityLow),
	}

	conflicts := schedule.DetectConflicts(tasks)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, "A", c.TaskA)
	assert.Equal(t, "B", c.TaskB)
	assert.Equal(t, schedule.Resource{Kind: schedule.ResourceMachine, ID: "M1"}, c.Resource)
	assert.True(t, c.Overlap.Equal(window(10, 11)))
	assert.Equal(t, schedule.SeverityHigh, c.Severity)
	assert.Contains(t, c.Reason, "machine M1")
}

// TestDetectConflicts_HalfOpen 测试首尾相接的窗口不算冲突
func TestDetectConflicts_HalfOpen(t *testing.T) {
	tasks := []schedule.Task{
		task("A", "M1", "W1", window(9, 10), schedule.PriorityMedium),
		task("B", "M1", "W1", window(10, 11), schedule.PriorityMedium),
	}

	assert.Empty(t, schedule.DetectConflicts(tasks))
}

// TestDetectConflicts_IgnoresTerminal 测试已完成和已取消的任务不参与检测
func TestDetectConflicts_IgnoresTerminal(t *testing.T) {
	done := task("A", "M1", "", window(9, 11), schedule.PriorityHigh)
	done.Status = schedule.StatusCompleted
	cancelled := task("B", "M1", "", window(9, 11), schedule.PriorityHigh)
	cancelled.Status = schedule.StatusCancelled
	delayed := task("C", "M1", "", window(9, 11), schedule.PriorityLow)
	delayed.Status = schedule.StatusDelayed

	assert.Empty(t, schedule.DetectConflicts([]schedule.Task{done, cancelled, delayed}))
}

// TestDetectConflicts_BothResources 测试机器和工人维度分别报告
func TestDetectConflicts_BothResources(t *testing.T) {
	tasks := []schedule.Task{
		task("A", "M1", "W1", window(9, 11), schedule.PriorityMedium),
		task("B", "M1", "W1", window(10, 12), schedule.PriorityLow),
	}

	conflicts := schedule.DetectConflicts(tasks)
	require.Len(t, conflicts, 2)
	assert.Equal(t, schedule.ResourceMachine, conflicts[0].Resource.Kind)
	assert.Equal(t, schedule.ResourceAssignee, conflicts[1].Resource.Kind)
	assert.Equal(t, schedule.SeverityMedium, conflicts[0].Severity)
}

// TestDetectConflicts_TieBreak 测试相同开始时间按优先级再按 ID 排序
func TestDetectConflicts_TieBreak(t *testing.T) {
	tasks := []schedule.Task{
		task("z-low", "M1", "", window(9, 10), schedule.PriorityLow),
		task("b-crit", "M1", "", window(9, 10), schedule.PriorityCritical),
		task("a-crit", "M1", "", window(9, 10), schedule.PriorityCritical),
	}

	conflicts := schedule.DetectConflicts(tasks)
	require.Len(t, conflicts, 3)
	assert.Equal(t, "a-crit", conflicts[0].TaskA)
	assert.Equal(t, "b-crit", conflicts[0].TaskB)
	assert.Equal(t, "a-crit", conflicts[1].TaskA)
	assert.Equal(t, "z-low", conflicts[1].TaskB)
	assert.Equal(t, "b-crit", conflicts[2].TaskA)
	assert.Equal(t, "z-low", conflicts[2].TaskB)
}

// TestDetectConflicts_Idempotent 测试重复检测结果一致
func TestDetectConflicts_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tasks := randomTasks(rng, 60)

	first := schedule.DetectConflicts(tasks)
	second := schedule.DetectConflicts(tasks)
	assert.Equal(t, first, second)
}

// TestDetectConflicts_MatchesBruteForce 随机数据与 O(n²) 参考实现比对
func TestDetectConflicts_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		tasks := randomTasks(rng, 1+rng.Intn(40))

		got := conflictKeys(schedule.DetectConflicts(tasks))
		want := bruteForce(tasks)
		require.Equal(t, want, got, "round %d", round)
	}
}

func randomTasks(rng *rand.Rand, n int) []schedule.Task {
	machines := []string{"M1", "M2", "M3", ""}
	assignees := []string{"W1", "W2", ""}
	priorities := []schedule.Priority{
		schedule.PriorityLow, schedule.PriorityMedium, schedule.PriorityHigh, schedule.PriorityCritical,
	}
	statuses := []schedule.Status{
		schedule.StatusScheduled, schedule.StatusInProgress, schedule.StatusDelayed,
		schedule.StatusCompleted, schedule.StatusCancelled,
	}

	tasks := make([]schedule.Task, n)
	for i := range tasks {
		start := base.Add(time.Duration(rng.Intn(48)) * 15 * time.Minute)
		end := start.Add(time.Duration(1+rng.Intn(12)) * 15 * time.Minute)
		tasks[i] = schedule.Task{
			ID:         fmt.Sprintf("t%03d", i),
			MachineID:  machines[rng.Intn(len(machines))],
			AssigneeID: assignees[rng.Intn(len(assignees))],
			Window:     schedule.Window{Start: start, End: end},
			Status:     statuses[rng.Intn(len(statuses))],
			Priority:   priorities[rng.Intn(len(priorities))],
			Version:    1,
		}
	}
	return tasks
}
