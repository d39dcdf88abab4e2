// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"gorm.io/datatypes"
)

// UnboundedDate 旧数据中表示“不限日期”的占位值
const UnboundedDate = "0000-00-00"

// User 门禁用户模型
// 对应数据库表 users
// 存储用户标识、API Key 以及可通行的日期/时段
type User struct {
	// ID 行标识，自增主键，管理端修改/删除时使用
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 业务标识，全局唯一
	UserID string `gorm:"size:64;uniqueIndex;not null" json:"user_id"`

	// APIKey 由 UserID 派生的访问凭证，全局唯一
	// 服务端在创建/修改时重新计算，从不接受客户端传值
	APIKey string `gorm:"size:64;uniqueIndex;not null" json:"api_key"`

	// Name 显示名称，可选
	Name *string `gorm:"size:100" json:"name"`

	// Plates 车牌号列表（JSON 数组）
	Plates datatypes.JSON `json:"plates"`

	// DateFrom / DateTo 可通行日期区间（含两端），格式 YYYY-MM-DD
	// "0000-00-00" 表示该端不限
	DateFrom string `gorm:"size:10;not null" json:"date_from"`
	DateTo   string `gorm:"size:10;not null" json:"date_to"`

	// HourFrom / HourTo 每日可通行时段 [HourFrom, HourTo)
	// 两者都为 0 表示不限时段
	HourFrom int `gorm:"not null" json:"hour_from"`
	HourTo   int `gorm:"not null" json:"hour_to"`

	// Flag 是否启用，禁用的用户无论时段如何都不能开门
	Flag bool `gorm:"not null" json:"flag"`

	// PasswordHash 登录密码的 bcrypt 哈希值，可为空（为空则不能用密码登录）
	PasswordHash string `gorm:"size:255" json:"-"`

	// RegDate 注册时间，由 GORM 自动填充，之后不再修改
	RegDate time.Time `gorm:"column:regdate;autoCreateTime;index" json:"regdate"`

	// UpdatedAt 更新时间，由 GORM 自动更新
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
