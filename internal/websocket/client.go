package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个监控端 WebSocket 连接
type Client struct {
	hub       *Hub            // 所属的 Hub
	conn      *websocket.Conn // WebSocket 连接
	send      chan []byte     // 发送消息的通道
	userID    string          // 连接者的 user_id
	mu        sync.Mutex
	closed    bool // send 已关闭
}

const (
	// 写超时
	writeWait = 10 * time.Second

	// 等待 pong 的超时
	pongWait = 60 * time.Second

	// ping 间隔，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// 监控端只会发心跳，消息很小
	maxMessageSize = 4096

	// 发送缓冲区大小，满了就丢弃新事件
	sendBufferSize = 64
)

// NewClient 创建 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
}

// ReadPump 从连接读取消息
// 连接断开时注销客户端
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Warn("websocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendMessage(NewMessage(TypeError, &ErrorPayload{Message: "malformed message"}))
			continue
		}

		switch msg.Type {
		case TypeHeartbeat:
			c.SendMessage(NewMessage(TypePong, nil))
		default:
			c.SendMessage(NewMessage(TypeError, &ErrorPayload{Message: "unsupported message type " + msg.Type}))
		}
	}
}

// WritePump 把发送通道中的消息写入连接，并定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给该客户端
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal websocket message")
		return
	}
	c.enqueue(data)
}

// enqueue 非阻塞写入发送通道，缓冲区满时丢弃
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		logrus.WithField("user_id", c.userID).Warn("watcher send buffer full, dropping message")
	}
}

// Close 关闭发送通道，WritePump 随后退出
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
