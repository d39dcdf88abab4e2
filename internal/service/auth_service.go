package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gate-control/internal/cache"
	"gate-control/internal/config"
	"gate-control/internal/repository"
	"gate-control/pkg/util"
)

// AuthService 认证服务
// 用户名密码登录换取 API Key，并按客户端 IP 做失败次数限制
type AuthService struct {
	userRepo *repository.UserRepository // 用户数据访问层
	cache    *cache.RedisCache          // Redis 缓存（登录失败计数）
	auth     config.AuthConfig          // 登录保护参数
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(userRepo *repository.UserRepository, cache *cache.RedisCache, auth config.AuthConfig) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cache:    cache,
		auth:     auth,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required"`  // 用户标识
	Password string `json:"password" binding:"required"` // 密码
}

// LoginResponse 登录响应
// 网页端把 api_key 保存在 Cookie 中，后续请求携带
type LoginResponse struct {
	APIKey string `json:"api_key"`
	UserID string `json:"user_id"`
}

// Login 用户登录
// 参数:
//   - ctx: 上下文
//   - req: 登录请求
//   - clientIP: 客户端 IP，用于失败计数
//
// 返回:
//   - *LoginResponse: 登录成功返回 API Key
//   - error: IP 被封禁返回 ErrLoginBlocked，凭证错误返回 ErrAuthenticationFailed
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP string) (*LoginResponse, error) {
	// 1. 检查 IP 是否被封禁
	// Redis 不可用时放行，不影响正常登录
	if ttl, err := s.cache.IsLoginBlocked(ctx, clientIP); err != nil {
		logrus.WithError(err).Warn("login protection unavailable")
	} else if ttl > 0 {
		return nil, fmt.Errorf("%w: retry in %s", ErrLoginBlocked, ttl.Round(time.Second))
	}

	// 2. 查找用户并校验密码
	// 没有设置密码的用户不能通过密码登录
	user, err := s.userRepo.GetByUserID(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, err
	}
	if user == nil || !util.CheckPassword(req.Password, user.PasswordHash) {
		s.recordFailure(ctx, clientIP)
		return nil, fmt.Errorf("%w: invalid user_id or password", ErrAuthenticationFailed)
	}

	// 3. 登录成功，清空失败计数
	if err := s.cache.ClearLoginFailures(ctx, clientIP); err != nil {
		logrus.WithError(err).Warn("failed to clear login failures")
	}

	return &LoginResponse{
		APIKey: user.APIKey,
		UserID: user.UserID,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, clientIP string) {
	blocked, err := s.cache.RecordLoginFailure(ctx, clientIP, s.auth.LoginFailLimit, s.auth.LoginFailWindow, s.auth.LoginBlockDuration)
	if err != nil {
		logrus.WithError(err).Warn("failed to record login failure")
		return
	}
	if blocked {
		logrus.WithField("ip", clientIP).Warn("too many login failures, ip blocked")
	}
}
