// Package middleware 提供 HTTP 请求的中间件
// 包括 API Key 认证、设备凭证认证、CORS 跨域、日志记录等
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"gate-control/internal/model"
	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// 上下文键
const (
	ContextUser   = "gate_user"   // *model.User
	ContextDevice = "gate_device" // *model.DeviceCredential
)

// APIKeyCookie 网页端保存 API Key 的 Cookie 名称
const APIKeyCookie = "api_key"

// APIKeyAuthMiddleware 创建 API Key 认证中间件
// 依次从查询参数 api_key、请求头 X-API-Key、Cookie 中读取 Key，解析出的用户存入上下文
// 参数:
//   - userService: 用户服务
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func APIKeyAuthMiddleware(userService *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := userService.Resolve(c.Request.Context(), ExtractAPIKey(c))
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// DeviceAuthMiddleware 创建设备凭证认证中间件
// 凭证从 "Authorization: Bearer <token>" 或查询参数 token 读取
// 参数:
//   - deviceService: 设备凭证服务
//   - scope: 路由需要的授权范围
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func DeviceAuthMiddleware(deviceService *service.DeviceService, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := deviceService.Validate(c.Request.Context(), extractBearer(c), scope)
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		c.Set(ContextDevice, cred)
		c.Next()
	}
}

// ExtractAPIKey 从请求中读取 API Key
func ExtractAPIKey(c *gin.Context) string {
	if key := c.Query("api_key"); key != "" {
		return key
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if key, err := c.Cookie(APIKeyCookie); err == nil {
		return key
	}
	return ""
}

func extractBearer(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return c.Query("token")
}

func abortWithAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrAuthorizationFailed):
		response.Forbidden(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c, "internal error")
	}
}

// GetUser 从上下文获取已认证的用户
// 返回:
//   - *model.User: 未经过 APIKeyAuthMiddleware 时返回 nil
func GetUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

// GetDevice 从上下文获取已认证的设备凭证
func GetDevice(c *gin.Context) *model.DeviceCredential {
	v, ok := c.Get(ContextDevice)
	if !ok {
		return nil
	}
	cred, _ := v.(*model.DeviceCredential)
	return cred
}
