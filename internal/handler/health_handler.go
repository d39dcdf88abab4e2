package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gate-control/pkg/response"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db    *gorm.DB
	redis Pinger
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(db *gorm.DB, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Check 检查数据库和 Redis 连通性
// 任一依赖不可用时返回 503
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok", "redis": "ok"}
	healthy := true

	if err := h.pingDB(ctx); err != nil {
		status["database"] = err.Error()
		healthy = false
	}
	if err := h.redis.Ping(ctx); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		status["status"] = "degraded"
		response.ServiceUnavailable(c, status)
		return
	}
	response.Success(c, status)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
