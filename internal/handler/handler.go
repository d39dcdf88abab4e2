// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// ActionRequest 动作式接口的通用请求体
// POST /gate、/users、/devices 都使用 {action, api_key, data} 格式
type ActionRequest struct {
	Action string          `json:"action"`  // 动作名
	APIKey string          `json:"api_key"` // 调用者 API Key
	Data   json.RawMessage `json:"data"`    // 动作参数，各动作自行解析
}

// bindAction 解析动作式请求体
func bindAction(c *gin.Context) (*ActionRequest, bool) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "malformed request body: "+err.Error())
		return nil, false
	}
	return &req, true
}

// decodeData 把 data 字段解析到 v，data 缺省或为 null 时保持 v 的零值
func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed data: %v", service.ErrValidationFailed, err)
	}
	return nil
}

// errMissingID modify 动作缺少行标识
var errMissingID = fmt.Errorf("%w: id is required", service.ErrValidationFailed)

// unknownAction 构造不支持动作的错误
func unknownAction(action string) error {
	return fmt.Errorf("%w: %q", service.ErrInvalidAction, action)
}

// respondError 将业务错误映射为 HTTP 响应
// 未识别的错误统一返回 500，详细信息只写日志
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrLoginBlocked):
		response.LoginBlocked(c, err.Error())
	case errors.Is(err, service.ErrAuthorizationFailed):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrDeviceUnavailable):
		response.DeviceUnavailable(c, err.Error())
	case errors.Is(err, service.ErrValidationFailed), errors.Is(err, service.ErrInvalidAction):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUserExists), errors.Is(err, service.ErrDeviceExists):
		response.UserExists(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled error")
		_ = c.Error(err)
		response.InternalError(c, "internal error")
	}
}
