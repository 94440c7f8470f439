package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
	"github.com/bitfantasy/printmes/internal/workorder/sse"
)

// SSEHandler 通知流处理器
type SSEHandler struct {
	auth *service.AuthService
	hub  *sse.Hub
}

// NewSSEHandler 创建通知流处理器
func NewSSEHandler(auth *service.AuthService, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{auth: auth, hub: hub}
}

// Stream 建立 SSE 长连接
// GET /api/v1/notifications/stream?token=xxx
// EventSource 不能带请求头，令牌通过 query 参数传递。
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		Unauthorized(c, "Token is required")
		return
	}
	userID, err := h.auth.ParseToken(token)
	if err != nil {
		Unauthorized(c, "Invalid token")
		return
	}

	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())
	client := &sse.Client{
		ID:     clientID,
		UserID: userID,
		Events: make(chan []byte, 64),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case payload, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: message\ndata: %s\n\n", payload))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
