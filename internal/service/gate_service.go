package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gate-control/internal/config"
	"gate-control/internal/model"
)

const (
	// ExternalIP 外部设备触发时记录的来源
	ExternalIP = "external"
	// ExternalUserAgent 外部设备触发时记录的 User-Agent
	ExternalUserAgent = "external_camera"
	// SnapshotUserID 外部上传抓拍时记录的用户标识
	SnapshotUserID = "snapshot"
	// DeviceUserPrefix 外部设备开门时用户标识的前缀
	DeviceUserPrefix = "device:"
)

// EventPublisher 访问事件发布者
// RedisCache 实现了该接口
type EventPublisher interface {
	PublishAccessEvent(ctx context.Context, event interface{}) error
}

// AccessEvent 推送给实时监控端的访问事件，不含抓拍图片
type AccessEvent struct {
	LogID     int64     `json:"log_id"`
	UserID    *string   `json:"user_id"`
	Mode      string    `json:"mode"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestMeta 请求来源信息
type RequestMeta struct {
	ClientIP   string                 // 客户端 IP
	UserAgent  string                 // 客户端 User-Agent
	ClientInfo map[string]interface{} // 前端附带的客户端信息
}

// GateService 门禁业务服务
// 组合用户、日志和设备网关，实现 ready/open/snapshot 以及外部设备入口
type GateService struct {
	userService *UserService
	logService  *LogService
	camera      *CameraService
	publisher   EventPublisher
	gate        config.GateConfig
	loc         *time.Location
	now         func() time.Time
}

// NewGateService 创建 GateService 实例
// publisher 可以为 nil，此时不推送实时事件
func NewGateService(
	gate config.GateConfig,
	userService *UserService,
	logService *LogService,
	camera *CameraService,
	publisher EventPublisher,
) *GateService {
	return &GateService{
		userService: userService,
		logService:  logService,
		camera:      camera,
		publisher:   publisher,
		gate:        gate,
		loc:         gate.Location(),
		now:         time.Now,
	}
}

// SetClock 替换时间来源（同时作用于日志服务）
func (s *GateService) SetClock(now func() time.Time) {
	s.now = now
	s.logService.SetClock(now)
}

// ReadyResult ready 动作的返回
type ReadyResult struct {
	UserID     string   `json:"user_id"`
	UserName   *string  `json:"user_name"`
	Valid      bool     `json:"valid"`       // 当前是否允许开门
	CameraList []string `json:"camera_list"` // 可查看的摄像头
}

// Ready 返回用户信息以及当前是否可以开门
func (s *GateService) Ready(ctx context.Context, apiKey string) (*ReadyResult, error) {
	user, err := s.userService.Resolve(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	return &ReadyResult{
		UserID:     user.UserID,
		UserName:   user.Name,
		Valid:      user.Flag && ValidWindow(s.now(), s.loc, WindowOf(user)),
		CameraList: s.camera.CameraNames(),
	}, nil
}

// MessageResult 只包含提示信息的返回
type MessageResult struct {
	Message string `json:"message"`
}

// Open 网页端开门
// 无论授权或继电器是否成功都会写一条访问日志；API Key 无法识别时不写日志
// 参数:
//   - ctx: 上下文
//   - apiKey: 用户 API Key
//   - meta: 请求来源
//
// 返回:
//   - *MessageResult: 成功时为 "opened OK"
//   - error: ErrAuthenticationFailed / ErrAuthorizationFailed / ErrDeviceUnavailable
func (s *GateService) Open(ctx context.Context, apiKey string, meta RequestMeta) (*MessageResult, error) {
	user, err := s.userService.Resolve(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var openErr error
	switch {
	case !user.Flag:
		openErr = fmt.Errorf("%w: user is disabled, contact the administrator", ErrAuthorizationFailed)
	case !ValidWindow(s.now(), s.loc, WindowOf(user)):
		openErr = fmt.Errorf("%w: outside the access window, contact the administrator", ErrAuthorizationFailed)
	default:
		_, openErr = s.camera.TriggerRelay(ctx, s.gate.DoorCamera, s.gate.OpenSeconds)
	}

	userID := user.UserID
	s.record(ctx, model.ModeOpen, openErr, RecordInput{
		UserID: &userID,
		EventInfo: map[string]interface{}{
			"ip":          meta.ClientIP,
			"mode":        model.ModeOpen,
			"api_key":     apiKey,
			"client_info": meta.ClientInfo,
		},
		UserAgent: meta.UserAgent,
		Camera:    s.gate.DoorCamera,
	})

	if openErr != nil {
		return nil, openErr
	}
	return &MessageResult{Message: "opened OK"}, nil
}

// SnapshotResult snapshot 动作的返回
type SnapshotResult struct {
	CamName  string `json:"cam_name"`
	Snapshot string `json:"snapshot"` // data URI
}

// Snapshot 查看摄像头实时画面
// camName 为空时使用门口摄像头
func (s *GateService) Snapshot(ctx context.Context, apiKey, camName string) (*SnapshotResult, error) {
	if _, err := s.userService.Resolve(ctx, apiKey); err != nil {
		return nil, err
	}

	camName = strings.TrimSpace(camName)
	if camName == "" {
		camName = s.gate.DoorCamera
	}

	snap, err := s.camera.Snapshot(ctx, camName)
	if err != nil {
		return nil, err
	}
	return &SnapshotResult{CamName: camName, Snapshot: snap}, nil
}

// Exit 外部设备触发开门（如出口车牌识别）
// 调用方已校验设备凭证的 exit 授权；不检查用户启用状态和时段
func (s *GateService) Exit(ctx context.Context, cred *model.DeviceCredential, meta RequestMeta) (*MessageResult, error) {
	_, relayErr := s.camera.TriggerRelay(ctx, s.gate.DoorCamera, s.gate.OpenSeconds)

	userID := DeviceUserPrefix + cred.Name
	s.record(ctx, model.ModeExit, relayErr, RecordInput{
		UserID: &userID,
		EventInfo: map[string]interface{}{
			"ip":         ExternalIP,
			"mode":       model.ModeExit,
			"credential": cred.Name,
			"remote_ip":  meta.ClientIP,
		},
		UserAgent: ExternalUserAgent,
		Camera:    s.gate.ExitCamera,
	})

	if relayErr != nil {
		return nil, relayErr
	}
	return &MessageResult{Message: "opened"}, nil
}

// StoreSnapshot 保存外部设备上传的抓拍
// 参数:
//   - ctx: 上下文
//   - cred: 已校验 snapshot 授权的设备凭证
//   - params: 上传时附带的查询参数，原样写入 event_info
//   - image: JPEG 字节，可为空
//   - meta: 请求来源
func (s *GateService) StoreSnapshot(ctx context.Context, cred *model.DeviceCredential, params map[string]string, image []byte, meta RequestMeta) (*model.AccessLog, error) {
	info := make(map[string]interface{}, len(params)+3)
	for k, v := range params {
		info[k] = v
	}
	info["mode"] = model.ModeSnapshot
	info["credential"] = cred.Name
	info["ip"] = meta.ClientIP

	var snapshot string
	if len(image) > 0 {
		snapshot = EncodeSnapshot(image)
	}

	userID := SnapshotUserID
	entry, err := s.logService.Record(context.WithoutCancel(ctx), RecordInput{
		UserID:    &userID,
		EventInfo: info,
		UserAgent: meta.UserAgent,
		Snapshot:  snapshot,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, entry, model.ModeSnapshot, nil)
	return entry, nil
}

// record 写访问日志并推送事件，日志失败只记录错误，不改变开门结果
func (s *GateService) record(ctx context.Context, mode string, result error, in RecordInput) {
	// 客户端断开也要写完日志
	ctx = context.WithoutCancel(ctx)

	in.EventInfo["success"] = result == nil
	if result != nil {
		in.EventInfo["reason"] = result.Error()
	}

	entry, err := s.logService.Record(ctx, in)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"mode":    mode,
			"user_id": derefString(in.UserID),
		}).Error("failed to record access log")
		return
	}
	s.publish(ctx, entry, mode, result)
}

func (s *GateService) publish(ctx context.Context, entry *model.AccessLog, mode string, result error) {
	if s.publisher == nil {
		return
	}

	event := AccessEvent{
		LogID:     entry.ID,
		UserID:    entry.UserID,
		Mode:      mode,
		Success:   result == nil,
		Timestamp: entry.Timestamp,
	}
	if result != nil {
		event.Reason = result.Error()
	}

	if err := s.publisher.PublishAccessEvent(ctx, event); err != nil {
		logrus.WithError(err).WithField("log_id", entry.ID).Warn("failed to publish access event")
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
