package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
)

// sseHeartbeat 心跳间隔
var sseHeartbeat = 30 * time.Second

// SSEHandler 排产事件 SSE 推送
// 支持 token 认证,validator 为 nil 时不校验;query 参数 machines 以逗号分隔订阅的机器
func SSEHandler(hub *websocket.Hub, validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := "anonymous"
		if validator != nil {
			token := c.Query("token")
			if token == "" {
				token = auth.BearerToken(c.GetHeader("Authorization"))
			}
			if token == "" {
				Error(c, http.StatusUnauthorized, "missing token", "")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				Error(c, http.StatusUnauthorized, "invalid token", "")
				return
			}
			userID = claims.Sub
		}

		var machines []string
		if raw := c.Query("machines"); raw != "" {
			machines = strings.Split(raw, ",")
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			Error(c, http.StatusInternalServerError, "streaming not supported", "")
			return
		}

		client, err := hub.Subscribe(userID, machines...)
		if err != nil {
			_ = c.Error(WrapError(err, http.StatusServiceUnavailable, "event stream unavailable"))
			return
		}
		defer hub.Unsubscribe(client)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲
		c.Status(http.StatusOK)

		connected, _ := json.Marshal(gin.H{
			"type":     "connected",
			"user_id":  userID,
			"machines": machines,
			"time":     time.Now().UTC(),
		})
		if err := sendSSEMessage(c.Writer, connected); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				// 注释行作为心跳,客户端会忽略
				if _, err := io.WriteString(c.Writer, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				if err := sendSSEMessage(c.Writer, msg); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// sendSSEMessage 发送 SSE 消息
func sendSSEMessage(w io.Writer, data []byte) error {
	// SSE 格式: data: <json>\n\n
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
