// Package response 提供统一的 HTTP 响应格式
// 成功时直接返回业务 JSON，失败时返回非 2xx 状态码和 {code, detail}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
// code: 业务状态码
// detail: 错误信息
type ErrorResponse struct {
	Code   int    `json:"code"`   // 业务状态码
	Detail string `json:"detail"` // 错误信息
}

// MessageResponse 只有提示信息的成功响应
type MessageResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 业务状态码定义
const (
	CodeBadRequest         = 1000 // 请求参数错误
	CodeUnauthorized       = 1001 // 认证失败
	CodeForbidden          = 1002 // 无权操作
	CodeNotFound           = 1003 // 资源不存在
	CodeInternalError      = 1004 // 服务器内部错误
	CodeServiceUnavailable = 1005 // 依赖服务不可用
	CodeUserExists         = 1101 // 用户已存在
	CodeLoginBlocked       = 1102 // 登录失败次数过多
	CodeDeviceUnavailable  = 1201 // 摄像头/继电器不可用
)

// Success 返回成功响应
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，可以是任意类型
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message 返回只带提示信息的成功响应
func Message(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, MessageResponse{Message: message, Data: data})
}

// Created 返回 201 创建成功响应
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, MessageResponse{Message: message, Data: data})
}

// ErrorWithCode 返回错误响应（带业务状态码）
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - bizCode: 业务状态码
//   - detail: 错误信息
func ErrorWithCode(c *gin.Context, httpCode, bizCode int, detail string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{
		Code:   bizCode,
		Detail: detail,
	})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusBadRequest, CodeBadRequest, detail)
}

// Unauthorized 返回 401 错误（认证失败）
func Unauthorized(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusUnauthorized, CodeUnauthorized, detail)
}

// Forbidden 返回 403 错误（无权操作）
func Forbidden(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusForbidden, CodeForbidden, detail)
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusNotFound, CodeNotFound, detail)
}

// UserExists 返回用户已存在错误
func UserExists(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusBadRequest, CodeUserExists, detail)
}

// LoginBlocked 返回登录被封禁错误
func LoginBlocked(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusForbidden, CodeLoginBlocked, detail)
}

// DeviceUnavailable 返回 502 错误（设备不可用）
func DeviceUnavailable(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusBadGateway, CodeDeviceUnavailable, detail)
}

// ServiceUnavailable 返回 503 错误（依赖服务不可用）
func ServiceUnavailable(c *gin.Context, data interface{}) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, data)
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, detail string) {
	ErrorWithCode(c, http.StatusInternalServerError, CodeInternalError, detail)
}
