// Package middleware 提供 HTTP 请求的中间件
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gate-control/pkg/response"
)

// LoggerMiddleware 创建请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// 只记录路径，不记录查询参数（api_key、token 会出现在查询参数里）
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"status":  statusCode,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
			"method":  c.Request.Method,
			"path":    path,
		})
		if errMsg := c.Errors.ByType(gin.ErrorTypePrivate).String(); errMsg != "" {
			entry = entry.WithField("error", errMsg)
		}

		// 根据状态码选择日志级别
		switch {
		case statusCode >= 500:
			entry.Error("request")
		case statusCode >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// RecoveryMiddleware 创建 panic 恢复中间件
// 捕获处理器中的 panic，防止程序崩溃
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithFields(logrus.Fields{
					"panic": err,
					"path":  c.Request.URL.Path,
				}).Error("handler panic")

				response.ErrorWithCode(c, http.StatusInternalServerError, response.CodeInternalError, "internal error")
			}
		}()

		c.Next()
	}
}
