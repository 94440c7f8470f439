// Package sse 实现通知流：每个已登录用户一条长连接，
// 服务端把任务与施工单事件推给全部在线客户端。
// 投递是至多一次：客户端缓冲满就丢弃，不回放。
package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// Client 一条已连接的通知流
type Client struct {
	ID     string
	UserID string
	Events chan []byte
}

// Hub 管理全部通知流连接
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub 创建通知中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// Register 接入新客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Info("notify client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister 断开客户端
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Info("notify client disconnected",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)))
	}
}

// Broadcast 向全部客户端投递一帧数据
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- payload:
		default:
			// 缓冲满直接丢，至多一次投递
			h.logger.Warn("notify client buffer full, event dropped",
				zap.String("client_id", client.ID))
		}
	}
}

// Publish 实现 service.EventPublisher。
// 序列化失败只记审计日志，绝不回传业务调用方。
func (h *Hub) Publish(event service.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed",
			zap.String("type", event.Type),
			zap.String("work_order_id", event.WorkOrderID),
			zap.Error(err))
		return
	}
	h.Broadcast(payload)
}
