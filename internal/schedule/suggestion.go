package schedule

import (
	"fmt"
	"time"
)

const timeLayout = "2006-01-02 15:04"

// DescribePlacement 安排的可读描述
func DescribePlacement(p Placement) string {
	s := fmt.Sprintf("%s-%s", p.Window.Start.Format(timeLayout), p.Window.End.Format("15:04"))
	if p.MachineID != "" {
		s += " on machine " + p.MachineID
	}
	if p.AssigneeID != "" {
		s += " with assignee " + p.AssigneeID
	}
	return s
}

func describeChange(c Change) string {
	switch c.Kind {
	case ChangeReschedule:
		dir := "later"
		if c.To.Window.Start.Before(c.From.Window.Start) {
			dir = "earlier"
		}
		return fmt.Sprintf("move task %s %d minutes %s to %s",
			c.TaskID, c.DisplacementMinutes, dir, DescribePlacement(c.To))
	case ChangeMoveMachine:
		return fmt.Sprintf("move task %s from machine %s to machine %s at %s",
			c.TaskID, c.From.MachineID, c.To.MachineID, c.To.Window)
	case ChangeMoveAssignee:
		return fmt.Sprintf("reassign task %s from %s to %s at %s",
			c.TaskID, c.From.AssigneeID, c.To.AssigneeID, c.To.Window)
	default:
		return fmt.Sprintf("move task %s to %s", c.TaskID, DescribePlacement(c.To))
	}
}

func describeUnresolved(c Conflict, cfg Config) string {
	hint := fmt.Sprintf("extend the horizon beyond %d days", cfg.HorizonDays)
	switch c.Resource.Kind {
	case ResourceMachine:
		hint += " or add machine capacity of the same type"
	case ResourceAssignee:
		if cfg.AllowCrossAssigneeReassignment {
			hint += " or add qualified workers"
		} else {
			hint += " or allow cross-assignee reassignment"
		}
	}
	return fmt.Sprintf("unresolved: tasks %s and %s overlap on %s during %s; %s",
		c.TaskA, c.TaskB, c.Resource, c.Overlap, hint)
}

// DescribeAlternatives 将候选安排转换为建议文本
func DescribeAlternatives(taskID string, from Placement, alts []Placement) []string {
	out := make([]string, 0, len(alts))
	for _, a := range alts {
		switch {
		case a.MachineID != from.MachineID || a.AssigneeID != from.AssigneeID:
			out = append(out, fmt.Sprintf("task %s fits %s", taskID, DescribePlacement(a)))
		default:
			d := a.Window.Start.Sub(from.Window.Start)
			out = append(out, fmt.Sprintf("task %s fits %s (%s from requested start)",
				taskID, DescribePlacement(a), signed(d)))
		}
	}
	return out
}

func signed(d time.Duration) string {
	if d >= 0 {
		return "+" + d.String()
	}
	return d.String()
}
