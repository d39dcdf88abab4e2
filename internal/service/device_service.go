package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gate-control/internal/cache"
	"gate-control/internal/model"
	"gate-control/internal/repository"
	"gate-control/pkg/jwt"
	"gate-control/pkg/util"
)

// DeviceService 设备凭证服务
// 为可信外部集成（出口摄像头、抓拍上传）签发、校验和撤销 JWT 凭证
type DeviceService struct {
	credRepo   *repository.DeviceCredentialRepository // 设备凭证数据访问层
	cache      *cache.RedisCache                      // 撤销名单
	jwtService *jwt.JWTService                        // 凭证签发
}

// NewDeviceService 创建 DeviceService 实例
func NewDeviceService(credRepo *repository.DeviceCredentialRepository, cache *cache.RedisCache, jwtService *jwt.JWTService) *DeviceService {
	return &DeviceService{
		credRepo:   credRepo,
		cache:      cache,
		jwtService: jwtService,
	}
}

// IssueDeviceRequest 签发请求
type IssueDeviceRequest struct {
	Name  string `json:"name"`  // 设备名称
	Scope string `json:"scope"` // exit / snapshot
}

// IssueDeviceResponse 签发响应
// Token 只在签发时返回一次，服务端不保存
type IssueDeviceResponse struct {
	Credential *model.DeviceCredential `json:"credential"`
	Token      string                  `json:"token"`
}

// Issue 签发设备凭证
// 同名凭证已撤销时复用该记录并轮换标识；未撤销时返回 ErrDeviceExists
// 参数:
//   - ctx: 上下文
//   - req: 签发请求
//
// 返回:
//   - *IssueDeviceResponse: 凭证记录与 Token
//   - error: 参数不合法或名称重复
func (s *DeviceService) Issue(ctx context.Context, req *IssueDeviceRequest) (*IssueDeviceResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if req.Scope != model.ScopeExit && req.Scope != model.ScopeSnapshot {
		return nil, fmt.Errorf("%w: scope must be %q or %q", ErrValidationFailed, model.ScopeExit, model.ScopeSnapshot)
	}

	existing, err := s.credRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Revoked {
		return nil, fmt.Errorf("%w: %s", ErrDeviceExists, name)
	}

	tokenID := util.GenerateUUID()
	token, expiresAt, err := s.jwtService.GenerateDeviceToken(tokenID, name, req.Scope)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		fields := map[string]interface{}{
			"token_id":     tokenID,
			"scope":        req.Scope,
			"revoked":      false,
			"expires_at":   expiresAt,
			"last_used_at": nil,
		}
		if err := s.credRepo.UpdateFields(ctx, existing.ID, fields); err != nil {
			return nil, err
		}
		existing.TokenID = tokenID
		existing.Scope = req.Scope
		existing.Revoked = false
		existing.ExpiresAt = expiresAt
		existing.LastUsedAt = nil
		return &IssueDeviceResponse{Credential: existing, Token: token}, nil
	}

	cred := &model.DeviceCredential{
		Name:      name,
		TokenID:   tokenID,
		Scope:     req.Scope,
		ExpiresAt: expiresAt,
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		return nil, err
	}
	return &IssueDeviceResponse{Credential: cred, Token: token}, nil
}

// Validate 校验设备凭证并检查授权范围
// 参数:
//   - ctx: 上下文
//   - token: 设备提交的 JWT
//   - scope: 本次操作需要的授权范围
//
// 返回:
//   - *model.DeviceCredential: 凭证记录
//   - error: 凭证无效/已撤销返回 ErrAuthenticationFailed，范围不符返回 ErrAuthorizationFailed
func (s *DeviceService) Validate(ctx context.Context, token, scope string) (*model.DeviceCredential, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: device token is required", ErrAuthenticationFailed)
	}

	claims, err := s.jwtService.ValidateDeviceToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	// 先查 Redis 撤销名单，再以数据库记录为准
	if s.cache.IsDeviceTokenRevoked(ctx, claims.ID) {
		return nil, fmt.Errorf("%w: device credential revoked", ErrAuthenticationFailed)
	}
	cred, err := s.credRepo.GetByTokenID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Revoked {
		return nil, fmt.Errorf("%w: device credential revoked", ErrAuthenticationFailed)
	}

	if cred.Scope != scope {
		return nil, fmt.Errorf("%w: credential %s is not allowed to %s", ErrAuthorizationFailed, cred.Name, scope)
	}

	now := time.Now()
	if err := s.credRepo.UpdateFields(ctx, cred.ID, map[string]interface{}{"last_used_at": now}); err != nil {
		logrus.WithError(err).WithField("device", cred.Name).Warn("failed to update last_used_at")
	}
	cred.LastUsedAt = &now
	return cred, nil
}

// RevokeDeviceRequest 撤销请求
type RevokeDeviceRequest struct {
	Name string `json:"name"`
}

// Revoke 撤销设备凭证
// 返回:
//   - error: 凭证不存在返回 ErrNotFound
func (s *DeviceService) Revoke(ctx context.Context, req *RevokeDeviceRequest) error {
	cred, err := s.credRepo.GetByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	if cred == nil {
		return fmt.Errorf("%w: device %s", ErrNotFound, req.Name)
	}
	if cred.Revoked {
		return nil
	}

	if err := s.credRepo.UpdateFields(ctx, cred.ID, map[string]interface{}{"revoked": true}); err != nil {
		return err
	}
	// 数据库已标记撤销，Redis 写入失败不影响结果
	if err := s.cache.RevokeDeviceToken(ctx, cred.TokenID, cred.ExpiresAt); err != nil {
		logrus.WithError(err).WithField("device", cred.Name).Warn("failed to add token to revocation list")
	}
	return nil
}

// List 获取全部设备凭证
func (s *DeviceService) List(ctx context.Context) ([]model.DeviceCredential, error) {
	creds, err := s.credRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		creds = []model.DeviceCredential{}
	}
	return creds, nil
}
