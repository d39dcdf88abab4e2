package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gate-control/internal/middleware"
	"gate-control/internal/service"
	"gate-control/pkg/response"
)

// apiKeyCookieMaxAge 登录后 API Key Cookie 的有效期
const apiKeyCookieMaxAge = 30 * 24 * time.Hour

// AuthHandler 认证请求处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用 user_id 和密码换取 API Key，同时写入 Cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "登录信息"
// @Success 200 {object} service.LoginResponse
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "malformed request body: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.APIKeyCookie, result.APIKey, int(apiKeyCookieMaxAge.Seconds()), "/", "", false, false)
	response.Success(c, result)
}
