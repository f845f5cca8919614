package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType 排产事件类型
type EventType string

const (
	EventTaskCreated       EventType = "task.created"
	EventTaskStatusChanged EventType = "task.status_changed"
	EventTaskReassigned    EventType = "task.reassigned"
	EventTaskCancelled     EventType = "task.cancelled"
	EventProposalApplied   EventType = "proposal.applied"
)

// Event 排产事件,写入发件箱后投递到 Kafka 并推送给 WebSocket 客户端
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	TaskID     string          `json:"task_id"`
	MachineIDs []string        `json:"machine_ids,omitempty"` // 涉及的机器,用于订阅过滤
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Time       time.Time       `json:"time"`
}

// NewEvent 创建事件
func NewEvent(typ EventType, taskID, actor string, payload interface{}, machineIDs ...string) (Event, error) {
	evt := Event{
		ID:         uuid.New().String(),
		Type:       typ,
		TaskID:     taskID,
		MachineIDs: compact(machineIDs),
		Actor:      actor,
		Time:       time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		evt.Payload = data
	}
	return evt, nil
}

// compact 去掉空值和重复值
func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
