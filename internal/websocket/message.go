// Package websocket 提供 WebSocket 通信功能
// 把访问事件实时推送给管理端监控页面和 gatectl watch
package websocket

import (
	"time"
)

// MessageType 消息类型常量
const (
	// 服务端 → 客户端
	TypeConnected   = "connected"    // 连接建立
	TypeAccessEvent = "access:event" // 访问事件

	// 客户端 → 服务端
	TypeHeartbeat = "heartbeat" // 心跳

	// 通用
	TypeError = "error" // 错误消息
	TypePong  = "pong"  // 心跳响应
)

// Message WebSocket 消息结构
type Message struct {
	Type      string      `json:"type"`      // 消息类型
	Payload   interface{} `json:"payload"`   // 消息内容
	Timestamp int64       `json:"timestamp"` // 时间戳（毫秒）
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ConnectedPayload 连接建立时下发的信息
type ConnectedPayload struct {
	UserID string `json:"user_id"`
}

// ErrorPayload 错误消息内容
type ErrorPayload struct {
	Message string `json:"message"`
}
