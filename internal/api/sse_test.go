package api_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/api"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/integration"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readData 读取下一条 data 消息
func readData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

// TestSSEHandler 测试 SSE 推送排产事件
func TestSSEHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	hub := websocket.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	router.GET("/sse/schedule", api.SSEHandler(hub, nil))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/schedule?machines=M1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Contains(t, readData(t, reader), `"type":"connected"`)

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	skipped, err := integration.NewEvent(integration.EventTaskReassigned, "T0", "alice", nil, "M2")
	require.NoError(t, err)
	hub.BroadcastEvent(skipped)

	evt, err := integration.NewEvent(integration.EventTaskReassigned, "T1", "alice", nil, "M1")
	require.NoError(t, err)
	hub.BroadcastEvent(evt)

	got := readData(t, reader)
	assert.Contains(t, got, evt.ID)
	assert.NotContains(t, got, skipped.ID)
}

// TestSSEHandler_HubStopped 测试推送中心已停止时返回 503
func TestSSEHandler_HubStopped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	hub := websocket.NewHub(log)
	hub.Stop()

	router := gin.New()
	router.Use(api.ErrorHandlerMiddleware())
	router.GET("/sse/schedule", api.SSEHandler(hub, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/schedule", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "event stream unavailable", env.Message)
	assert.Equal(t, websocket.ErrHubStopped.Error(), env.Detail)
}
