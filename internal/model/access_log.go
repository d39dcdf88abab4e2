package model

import (
	"time"

	"gorm.io/datatypes"
)

// LogFlagDefault 访问日志 flag 字段的默认值
const LogFlagDefault = "n"

// 访问事件模式
const (
	ModeOpen     = "open"     // 网页端开门
	ModeExit     = "exit"     // 外部设备触发出门
	ModeSnapshot = "snapshot" // 外部设备上传抓拍
)

// AccessLog 访问日志模型
// 对应数据库表 access_logs
// 每次开门尝试写入一条，超过保留期的最旧记录会被原地覆盖
type AccessLog struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// RegDate 事件时间（固定时区偏移后的墙上时间），格式 2006-01-02 15:04:05
	RegDate string `gorm:"column:regdate;size:19;not null" json:"regdate"`

	// Timestamp 事件发生的时刻，用于排序和保留期判断
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`

	// UserID 事件发生时由 API Key 解析出的用户，无法解析时为 NULL
	UserID *string `gorm:"size:64;index" json:"user_id"`

	// EventInfo 请求来源信息：ip、mode、api_key、client_info 等
	EventInfo datatypes.JSON `json:"eventinfo"`

	// UserAgent 客户端 User-Agent
	UserAgent string `gorm:"size:512" json:"user_agent"`

	// Snapshot 事件发生时的抓拍图片（base64 data URI），抓拍失败时为空
	Snapshot string `gorm:"type:longtext" json:"snapshot"`

	// Flag 自由标记，默认 'n'
	Flag string `gorm:"size:1;default:n" json:"flag"`

	// CamNo 抓拍摄像头的序号（按名称排序后的下标）
	CamNo int `json:"cam_no"`
}

// TableName 指定表名
func (AccessLog) TableName() string {
	return "access_logs"
}
