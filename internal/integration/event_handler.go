package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/metrics"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/sirupsen/logrus"
)

// Broadcaster 实时推送目标
type Broadcaster interface {
	BroadcastEvent(evt Event)
}

// EventHandlerOptions 事件处理器参数
type EventHandlerOptions struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Backoff    time.Duration // 首次重试间隔,之后指数退避
}

// EventHandler 事件发件箱: 先持久化,再由 worker 异步投递
type EventHandler struct {
	eventRepo   repository.EventRepository
	publisher   Publisher
	broadcaster Broadcaster
	logger      *logrus.Logger
	opts        EventHandlerOptions
	queue       chan *model.EventModel
	stop        chan struct{}
	wg          sync.WaitGroup
	startOnce   sync.Once
	stopOnce    sync.Once
}

// NewEventHandler 创建事件处理器
func NewEventHandler(eventRepo repository.EventRepository, publisher Publisher, broadcaster Broadcaster, logger *logrus.Logger, opts EventHandlerOptions) *EventHandler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &EventHandler{
		eventRepo:   eventRepo,
		publisher:   publisher,
		broadcaster: broadcaster,
		logger:      logger,
		opts:        opts,
		queue:       make(chan *model.EventModel, opts.QueueSize),
		stop:        make(chan struct{}),
	}
}

// Start 启动 worker,并重新投递上次未完成的事件
func (h *EventHandler) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		for i := 0; i < h.opts.Workers; i++ {
			h.wg.Add(1)
			go h.worker()
		}

		pending, err := h.eventRepo.FindPending(ctx, h.opts.QueueSize)
		if err != nil {
			h.logger.WithError(err).Warn("failed to load pending events")
			return
		}
		for _, m := range pending {
			h.enqueue(m)
		}
	})
}

// Handle 持久化事件,推送给在线客户端,并放入投递队列
func (h *EventHandler) Handle(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now().UTC()
	m := &model.EventModel{
		ID:         evt.ID,
		TaskID:     evt.TaskID,
		Type:       string(evt.Type),
		Data:       data,
		Status:     repository.EventPending,
		RetryCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.eventRepo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastEvent(evt)
	}

	h.enqueue(m)
	return nil
}

func (h *EventHandler) enqueue(m *model.EventModel) {
	select {
	case h.queue <- m:
	default:
		// 队列满时保留 pending 状态,下次启动时重新投递
		h.logger.WithFields(logrus.Fields{
			"event_id": m.ID,
			"type":     m.Type,
			"task_id":  m.TaskID,
		}).Warn("event queue full, delivery deferred")
	}
}

// worker 事件投递 worker
func (h *EventHandler) worker() {
	defer h.wg.Done()
	for {
		select {
		case m := <-h.queue:
			h.deliver(m)
		case <-h.stop:
			return
		}
	}
}

// deliver 带指数退避的投递
func (h *EventHandler) deliver(m *model.EventModel) {
	var evt Event
	if err := json.Unmarshal(m.Data, &evt); err != nil {
		h.logger.WithError(err).WithField("event_id", m.ID).Error("corrupt event payload")
		h.updateStatus(m, repository.EventFailed)
		return
	}

	backoff := h.opts.Backoff
	for i := 0; i < h.opts.MaxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := h.publisher.Publish(ctx, evt)
		cancel()
		if err == nil {
			h.updateStatus(m, repository.EventSuccess)
			metrics.RecordEventPublished(m.Type, repository.EventSuccess)
			return
		}

		m.RetryCount++
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": m.ID,
			"attempt":  i + 1,
		}).Warn("event delivery failed")

		if i < h.opts.MaxRetries-1 {
			select {
			case <-time.After(backoff):
			case <-h.stop:
				h.updateStatus(m, repository.EventPending)
				return
			}
			backoff *= 2
		}
	}

	h.updateStatus(m, repository.EventFailed)
	metrics.RecordEventPublished(m.Type, repository.EventFailed)
}

func (h *EventHandler) updateStatus(m *model.EventModel, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Status = status
	if err := h.eventRepo.UpdateStatus(ctx, m.ID, status, m.RetryCount); err != nil {
		h.logger.WithError(err).WithField("event_id", m.ID).Error("failed to update event status")
	}
}

// Stop 停止 worker 并关闭投递器
func (h *EventHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.wg.Wait()
		if err := h.publisher.Close(); err != nil {
			h.logger.WithError(err).Warn("failed to close event publisher")
		}
	})
}
