package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Hub 是 WebSocket 连接的中心管理器
// 负责管理监控端连接，并把访问事件广播给所有连接
type Hub struct {
	clients map[*Client]struct{}

	unregister chan *Client
	broadcast  chan []byte

	// done 在 Run 退出后关闭，避免注销时阻塞
	done chan struct{}

	mu sync.RWMutex
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行，ctx 取消后关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.enqueue(data)
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			close(h.done)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
		logrus.WithField("user_id", client.userID).Info("watcher disconnected")
	}
}

// Register 注册客户端
// 同步加入连接表，返回后广播一定能送达该客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		client.Close()
		return
	default:
	}
	h.clients[client] = struct{}{}
	logrus.WithField("user_id", client.userID).Info("watcher connected")
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast 向所有连接广播消息
func (h *Hub) Broadcast(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	}
	return nil
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RelayEvents 把 Redis 频道中的访问事件转发给所有连接
// ch 通常来自 RedisCache.SubscribeAccessEvents(ctx).Channel()，关闭或 ctx 取消时返回
func (h *Hub) RelayEvents(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// 事件已是 JSON，原样作为 payload
			payload := json.RawMessage(msg.Payload)
			if !json.Valid(payload) {
				logrus.WithField("channel", msg.Channel).Warn("dropping malformed access event")
				continue
			}
			if err := h.Broadcast(NewMessage(TypeAccessEvent, payload)); err != nil {
				logrus.WithError(err).Warn("failed to broadcast access event")
			}
		}
	}
}
