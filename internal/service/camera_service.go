package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gate-control/internal/config"
)

const (
	// SnapshotPrefix 抓拍图片 data URI 前缀
	SnapshotPrefix = "data:image/jpg;base64,"

	// relayOKPrefix 继电器 CGI 成功时响应体的开头
	relayOKPrefix = "#200"

	// maxSnapshotSize 单张抓拍允许读取的最大字节数
	maxSnapshotSize = 16 << 20
)

// CameraService 摄像头/继电器设备网关
// 通过设备自带的 HTTP CGI 抓拍图片、控制门禁继电器
type CameraService struct {
	cameras map[string]config.CameraConfig
	names   []string
	client  *http.Client
}

// NewCameraService 创建 CameraService 实例
func NewCameraService(cfg *config.Config) *CameraService {
	timeout := cfg.Gate.DeviceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cameras := make(map[string]config.CameraConfig, len(cfg.Cameras))
	names := make([]string, 0, len(cfg.Cameras))
	for name, cam := range cfg.Cameras {
		cameras[name] = cam
		names = append(names, name)
	}
	sort.Strings(names)

	return &CameraService{
		cameras: cameras,
		names:   names,
		client: &http.Client{
			Timeout: timeout, // 设备无响应时不能无限等待
		},
	}
}

// CameraNames 返回已配置的摄像头名称（按名称排序）
func (s *CameraService) CameraNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// CameraIndex 返回摄像头在排序后名称列表中的下标，未配置时返回 0
func (s *CameraService) CameraIndex(name string) int {
	i := sort.SearchStrings(s.names, name)
	if i < len(s.names) && s.names[i] == name {
		return i
	}
	return 0
}

// SnapshotResponse 带自定义请求头的摄像头返回的 JSON 格式
type SnapshotResponse struct {
	Data string `json:"data"` // base64 编码的 JPEG
}

// FetchSnapshot 从摄像头抓取一张 JPEG 图片
// 参数:
//   - ctx: 上下文
//   - name: 摄像头名称
//
// 返回:
//   - []byte: JPEG 原始字节
//   - error: 摄像头未配置返回 ErrNotFound，通信失败返回 ErrDeviceUnavailable
func (s *CameraService) FetchSnapshot(ctx context.Context, name string) ([]byte, error) {
	cam, ok := s.cameras[name]
	if !ok {
		return nil, fmt.Errorf("%w: camera %q", ErrNotFound, name)
	}

	status, body, err := s.do(ctx, cam, cam.SnapshotCGI, maxSnapshotSize)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: camera %s returned status %d", ErrDeviceUnavailable, name, status)
	}

	// 配置了请求头的摄像头以 JSON 返回 base64 图片
	if len(cam.Header) > 0 {
		var snap SnapshotResponse
		if err := json.Unmarshal(body, &snap); err != nil {
			return nil, fmt.Errorf("%w: camera %s returned malformed json: %v", ErrDeviceUnavailable, name, err)
		}
		img, err := base64.StdEncoding.DecodeString(snap.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: camera %s returned malformed image: %v", ErrDeviceUnavailable, name, err)
		}
		return img, nil
	}

	return body, nil
}

// Snapshot 抓拍并编码为 data URI
func (s *CameraService) Snapshot(ctx context.Context, name string) (string, error) {
	img, err := s.FetchSnapshot(ctx, name)
	if err != nil {
		return "", err
	}
	return EncodeSnapshot(img), nil
}

// CaptureSnapshot 尽力抓拍，失败时返回空字符串
// 写访问日志时使用，抓拍失败不能影响开门流程
func (s *CameraService) CaptureSnapshot(ctx context.Context, name string) string {
	snap, err := s.Snapshot(ctx, name)
	if err != nil {
		logrus.WithError(err).WithField("camera", name).Warn("snapshot capture failed")
		return ""
	}
	return snap
}

// TriggerRelay 控制摄像头上的继电器
// 参数:
//   - ctx: 上下文
//   - name: 摄像头名称
//   - secs: 0 为常开，-1 为关闭，其他值为吸合秒数
//
// 返回:
//   - bool: 设备响应以 "#200" 开头时为 true
//   - error: 失败时返回包装了 ErrDeviceUnavailable 的错误
func (s *CameraService) TriggerRelay(ctx context.Context, name string, secs int) (bool, error) {
	cam, ok := s.cameras[name]
	if !ok {
		return false, fmt.Errorf("%w: relay camera %q is not configured", ErrDeviceUnavailable, name)
	}

	var cgi string
	switch secs {
	case 0:
		cgi = cam.DOCGI.On
	case -1:
		cgi = cam.DOCGI.Off
	default:
		cgi = cam.DOCGI.Trig + strconv.Itoa(secs)
	}

	_, body, err := s.do(ctx, cam, cgi, 4096)
	if err != nil {
		return false, err
	}

	if !strings.HasPrefix(string(body), relayOKPrefix) {
		logrus.WithFields(logrus.Fields{
			"camera":   name,
			"response": strings.TrimSpace(string(body)),
		}).Warn("relay rejected request")
		return false, fmt.Errorf("%w: relay on %s did not confirm", ErrDeviceUnavailable, name)
	}
	return true, nil
}

// do 向设备发送一次 GET 请求，不重试
func (s *CameraService) do(ctx context.Context, cam config.CameraConfig, cgi string, limit int64) (int, []byte, error) {
	url := deviceURL(cam, cgi)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if cam.UserID != "" || cam.UserPW != "" {
		req.SetBasicAuth(cam.UserID, cam.UserPW)
	}
	for k, v := range cam.Header {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrDeviceUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

// deviceURL 拼接设备 CGI 地址，路径中的连续斜杠会被合并
func deviceURL(cam config.CameraConfig, cgi string) string {
	scheme := "http://"
	host := cam.Address
	if i := strings.Index(host, "://"); i >= 0 {
		scheme = host[:i+3]
		host = host[i+3:]
	}

	port := cam.Port
	if port == 0 {
		port = 80
	}

	raw := fmt.Sprintf("%s:%d/%s", strings.TrimRight(host, "/"), port, cgi)
	for strings.Contains(raw, "//") {
		raw = strings.ReplaceAll(raw, "//", "/")
	}
	return scheme + raw
}

// EncodeSnapshot 将 JPEG 字节编码为 data URI
func EncodeSnapshot(img []byte) string {
	return SnapshotPrefix + base64.StdEncoding.EncodeToString(img)
}
