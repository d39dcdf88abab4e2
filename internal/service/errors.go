// Package service 提供业务逻辑层的实现
// 服务层封装具体的业务逻辑，协调 Repository、Cache 和外部设备
package service

import "errors"

// 业务错误类别
// 具体错误通过 fmt.Errorf("%w: ...") 包装这些哨兵值，Handler 层用 errors.Is 映射 HTTP 状态码
var (
	ErrAuthenticationFailed = errors.New("authentication failed")   // 缺失或无法识别的凭证
	ErrAuthorizationFailed  = errors.New("authorization failed")    // 身份已识别但不允许此操作
	ErrDeviceUnavailable    = errors.New("device unavailable")      // 摄像头/继电器通信失败
	ErrValidationFailed     = errors.New("validation failed")       // 请求参数不合法
	ErrNotFound             = errors.New("not found")               // 目标记录不存在
	ErrUserExists           = errors.New("user already exists")     // user_id 重复
	ErrDeviceExists         = errors.New("device already exists")   // 设备凭证名称重复
	ErrInvalidAction        = errors.New("invalid action")          // 不支持的 action
	ErrLoginBlocked         = errors.New("too many login failures") // 登录失败次数过多，IP 被临时封禁
)
