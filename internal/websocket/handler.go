package websocket

import (
	"net/http"
	"strings"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

// NewUpgrader 创建升级器,allowedOrigins 包含 "*" 时不校验来源
func NewUpgrader(allowedOrigins []string) gorillaWS.Upgrader {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return gorillaWS.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// WebSocketHandler 排产事件订阅
// validator 为 nil 时不校验 token (开发模式),query 参数 machines 以逗号分隔订阅的机器
func WebSocketHandler(hub *Hub, validator auth.TokenValidator, allowedOrigins []string) gin.HandlerFunc {
	upgrader := NewUpgrader(allowedOrigins)

	return func(c *gin.Context) {
		userID := "anonymous"
		if validator != nil {
			token := c.Query("token")
			if token == "" {
				token = auth.BearerToken(c.GetHeader("Authorization"))
			}
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "missing token"})
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "invalid token"})
				return
			}
			userID = claims.Sub
		}

		var machines []string
		if raw := c.Query("machines"); raw != "" {
			machines = strings.Split(raw, ",")
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已写入错误响应
			hub.logger.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := NewClient(uuid.New().String(), userID, hub, conn, machines...)

		select {
		case hub.Register <- client:
		case <-hub.stop:
			conn.Close()
			return
		}

		go client.ReadPump()
		go client.WritePump()
	}
}
