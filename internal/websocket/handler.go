package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gate-control/internal/middleware"
)

// Handler WebSocket 请求处理器
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler 创建 Handler 实例
// 参数:
//   - hub: 事件广播中心
//   - allowOrigin: 浏览器来源校验，没有 Origin 头的请求（如 gatectl）总是允许
func NewHandler(hub *Hub, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
	}
}

// HandleEvents 处理访问事件订阅连接
// 路由前需要经过 APIKeyAuthMiddleware
// @Router /ws/events [get]
func (h *Handler) HandleEvents(c *gin.Context) {
	userID := ""
	if user := middleware.GetUser(c); user != nil {
		userID = user.UserID
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写入了 HTTP 错误响应
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	client.SendMessage(NewMessage(TypeConnected, &ConnectedPayload{UserID: userID}))

	go client.WritePump()
	go client.ReadPump()
}
