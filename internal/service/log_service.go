package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"

	"gate-control/internal/config"
	"gate-control/internal/model"
	"gate-control/internal/repository"
)

// RegDateLayout 访问日志 regdate 字段的格式
const RegDateLayout = "2006-01-02 15:04:05"

// LogService 访问日志服务
// 负责写入（含保留期覆盖）和分页查询
type LogService struct {
	logRepo *repository.AccessLogRepository
	camera  *CameraService
	gate    config.GateConfig
	loc     *time.Location
	now     func() time.Time
}

// NewLogService 创建 LogService 实例
func NewLogService(logRepo *repository.AccessLogRepository, camera *CameraService, gate config.GateConfig) *LogService {
	return &LogService{
		logRepo: logRepo,
		camera:  camera,
		gate:    gate,
		loc:     gate.Location(),
		now:     time.Now,
	}
}

// SetClock 替换时间来源
func (s *LogService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordInput 写入日志所需的信息
type RecordInput struct {
	UserID    *string                // 已解析的用户，无法解析时为 nil
	EventInfo map[string]interface{} // 请求来源信息
	UserAgent string                 // 客户端 User-Agent
	Camera    string                 // 抓拍摄像头名称
	Snapshot  string                 // 已有的抓拍图片，为空时从 Camera 抓拍
}

// Record 写入一条访问日志
// 抓拍失败不影响写入；超过保留期的最旧记录会被原地覆盖
// 参数:
//   - ctx: 上下文
//   - in: 日志内容
//
// 返回:
//   - *model.AccessLog: 写入后的记录（ID 已回填）
//   - error: 数据库错误
func (s *LogService) Record(ctx context.Context, in RecordInput) (*model.AccessLog, error) {
	snapshot := in.Snapshot
	if snapshot == "" && in.Camera != "" {
		snapshot = s.camera.CaptureSnapshot(ctx, in.Camera)
	}

	info, err := json.Marshal(in.EventInfo)
	if err != nil {
		return nil, err
	}

	// 抓拍可能耗时数秒，事件时间取抓拍之后
	now := s.now()
	entry := &model.AccessLog{
		RegDate:   now.In(s.loc).Format(RegDateLayout),
		Timestamp: now.UTC(),
		UserID:    in.UserID,
		EventInfo: datatypes.JSON(info),
		UserAgent: truncate(in.UserAgent, 512),
		Snapshot:  snapshot,
		Flag:      model.LogFlagDefault,
		CamNo:     s.camera.CameraIndex(in.Camera),
	}

	cutoff := now.Add(-s.gate.LogRetention).UTC()
	if _, err := s.logRepo.Record(ctx, entry, cutoff); err != nil {
		return nil, err
	}
	return entry, nil
}

// LogPage 日志分页结果
// offset 字段沿用旧接口含义，表示每页条数
type LogPage struct {
	Logs   []model.AccessLog `json:"logs"`
	Page   int               `json:"page"`
	Offset int               `json:"offset"`
	Total  int64             `json:"total"`
}

// List 分页查询日志，最新的在前
// 参数:
//   - ctx: 上下文
//   - page: 页码，从 1 开始，小于 1 按 1 处理
//   - size: 每页条数，<=0 使用默认值，超过上限按上限处理
func (s *LogService) List(ctx context.Context, page, size int) (*LogPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.gate.LogPageSize
	}
	if s.gate.LogPageSizeMax > 0 && size > s.gate.LogPageSizeMax {
		size = s.gate.LogPageSizeMax
	}
	if size <= 0 {
		size = 20
	}

	if page-1 > math.MaxInt/size {
		return nil, fmt.Errorf("%w: page %d is out of range", ErrValidationFailed, page)
	}

	logs, err := s.logRepo.List(ctx, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	total, err := s.logRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	if logs == nil {
		logs = []model.AccessLog{}
	}
	return &LogPage{Logs: logs, Page: page, Offset: size, Total: total}, nil
}

// Get 获取单条日志
func (s *LogService) Get(ctx context.Context, id int64) (*model.AccessLog, error) {
	entry, err := s.logRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: log %d", ErrNotFound, id)
	}
	return entry, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// 退回到字符边界，避免截断多字节字符
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
