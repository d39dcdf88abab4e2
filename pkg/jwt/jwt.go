// Package jwt 提供设备凭证（JWT）的签发和验证功能
// 设备凭证用于外部摄像头等可信集成调用开门、上传抓拍等接口
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 定义错误类型
var (
	ErrInvalidToken = errors.New("invalid token")     // Token 无效
	ErrExpiredToken = errors.New("token has expired") // Token 已过期
)

const (
	issuer        = "gate-control"
	subjectDevice = "device"
)

// DeviceClaims 设备 JWT 的声明
// ID (jti) 对应 device_credentials.token_id
type DeviceClaims struct {
	Name  string `json:"name"`  // 设备名称
	Scope string `json:"scope"` // 授权范围: exit / snapshot
	jwt.RegisteredClaims
}

// JWTService 提供 JWT 相关操作
type JWTService struct {
	secret       []byte        // JWT 签名密钥
	deviceExpire time.Duration // 设备凭证有效期
	now          func() time.Time
}

// NewJWTService 创建 JWTService 实例
// 参数:
//   - secret: JWT 签名密钥，至少 32 个字符
//   - deviceExpire: 设备凭证有效期
//
// 返回:
//   - *JWTService: JWT 服务实例
func NewJWTService(secret string, deviceExpire time.Duration) *JWTService {
	return &JWTService{
		secret:       []byte(secret),
		deviceExpire: deviceExpire,
		now:          time.Now,
	}
}

// GenerateDeviceToken 生成设备凭证
// 参数:
//   - tokenID: 凭证唯一标识，写入 jti
//   - name: 设备名称
//   - scope: 授权范围
//
// 返回:
//   - string: JWT Token 字符串
//   - time.Time: 过期时间
//   - error: 生成错误
func (s *JWTService) GenerateDeviceToken(tokenID, name, scope string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.deviceExpire)

	claims := DeviceClaims{
		Name:  name,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subjectDevice,
		},
	}

	// 使用 HMAC SHA256 算法签名
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateDeviceToken 验证设备凭证
// 参数:
//   - tokenString: JWT Token 字符串
//
// 返回:
//   - *DeviceClaims: Token 中的声明信息
//   - error: 验证错误（无效或已过期）
func (s *JWTService) ValidateDeviceToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 确保使用的是我们期望的算法（HMAC）
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithSubject(subjectDevice), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetDeviceExpire 获取设备凭证有效期
func (s *JWTService) GetDeviceExpire() time.Duration {
	return s.deviceExpire
}
