package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrHubStopped Hub 已停止
var ErrHubStopped = errors.New("websocket hub stopped")

// message 待广播的消息,machineIDs 为空时发给所有客户端
type message struct {
	data       []byte
	machineIDs []string
}

// Hub 管理所有 WebSocket 连接
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	broadcast  chan message
	Register   chan *Client
	Unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	logger *logrus.Logger

	// 保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stop:       make(chan struct{}),
		logger:     logger,
	}
}

// Run 运行 Hub,直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Subscribed(msg.machineIDs) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					// 发送缓冲区满,视为慢客户端断开
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// Stop 停止 Hub 并关闭所有客户端
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// BroadcastEvent 推送排产事件给订阅了相关机器的客户端
func (h *Hub) BroadcastEvent(evt integration.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.WithError(err).WithField("event_id", evt.ID).Error("failed to marshal event")
		return
	}
	select {
	case h.broadcast <- message{data: data, machineIDs: evt.MachineIDs}:
	case <-h.stop:
	default:
		h.logger.WithField("event_id", evt.ID).Warn("websocket broadcast queue full, event dropped")
	}
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Subscribe 注册一个没有 WebSocket 连接的订阅者 (SSE),消息从返回客户端的 Send 读取
func (h *Hub) Subscribe(userID string, machineIDs ...string) (*Client, error) {
	select {
	case <-h.stop:
		return nil, ErrHubStopped
	default:
	}
	client := NewClient(uuid.New().String(), userID, h, nil, machineIDs...)
	select {
	case h.Register <- client:
		return client, nil
	case <-h.stop:
		return nil, ErrHubStopped
	}
}

// Unsubscribe 注销订阅者
func (h *Hub) Unsubscribe(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.stop:
	}
}
