package model

import (
	"time"
)

// 设备凭证授权范围
const (
	ScopeExit     = "exit"     // 允许外部触发出门
	ScopeSnapshot = "snapshot" // 允许上传抓拍
)

// DeviceCredential 设备凭证模型
// 对应数据库表 device_credentials
// 表示一个可信外部集成（如出口摄像头）持有的、可撤销的 JWT 凭证
type DeviceCredential struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name 设备名称，全局唯一
	// 例如: "exit-cam", "parking-lpr"
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`

	// TokenID 凭证唯一标识，对应 JWT 的 jti
	// 数据库只保存标识，不保存 Token 本身
	TokenID string `gorm:"size:64;uniqueIndex;not null" json:"-"`

	// Scope 授权范围: exit / snapshot
	Scope string `gorm:"size:20;not null" json:"scope"`

	// Revoked 是否已撤销
	Revoked bool `gorm:"not null" json:"revoked"`

	// ExpiresAt 过期时间
	ExpiresAt time.Time `json:"expires_at"`

	// LastUsedAt 最后一次使用时间
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	// CreatedAt 创建时间，由 GORM 自动填充
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (DeviceCredential) TableName() string {
	return "device_credentials"
}
