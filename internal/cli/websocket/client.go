// Package websocket 订阅服务器的访问事件推送
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 消息类型常量
const (
	TypeConnected   = "connected"
	TypeAccessEvent = "access:event"
	TypeHeartbeat   = "heartbeat"
	TypePong        = "pong"
	TypeError       = "error"
)

// heartbeatInterval 客户端心跳间隔，需小于服务端读超时
const heartbeatInterval = 30 * time.Second

// Message WebSocket 消息结构
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// AccessEvent access:event 消息内容
type AccessEvent struct {
	LogID     int64     `json:"log_id"`
	UserID    *string   `json:"user_id"`
	Mode      string    `json:"mode"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client WebSocket 客户端
type Client struct {
	url       string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	onMessage func(*Message)
}

// NewClient 创建 WebSocket 客户端
// serverURL: HTTP 服务器地址（如 http://localhost:8080）
// apiKey: 登录换取的 API Key
func NewClient(serverURL, apiKey string) *Client {
	wsURL := strings.TrimRight(serverURL, "/")
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	return &Client{
		url: fmt.Sprintf("%s/ws/events?api_key=%s", wsURL, url.QueryEscape(apiKey)),
	}
}

// OnMessage 设置消息回调
func (c *Client) OnMessage(handler func(*Message)) {
	c.onMessage = handler
}

// Run 连接服务器并持续接收消息，直到 ctx 结束或连接断开
// 返回:
//   - error: 连接失败或异常断开；ctx 结束时返回 nil
func (c *Client) Run(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("连接失败: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("连接失败: %w", err)
	}
	c.conn = conn
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go c.heartbeat(done)

	// ctx 结束时关闭连接，让 ReadMessage 返回
	go func() {
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("连接断开: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).Debug("[WS] 解析消息失败")
			continue
		}
		if c.onMessage != nil {
			c.onMessage(&msg)
		}
	}
}

func (c *Client) heartbeat(done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			data, _ := json.Marshal(&Message{Type: TypeHeartbeat, Timestamp: time.Now().UnixMilli()})
			c.writeMu.Lock()
			err := c.conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
