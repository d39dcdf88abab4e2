// Package api 封装 gatectl 与门禁服务器的 HTTP 交互
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client API 客户端
// baseURL: 例如 http://localhost:8080
// apiKey: 登录后换取的 API Key，未登录时为空
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建 API 客户端
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Error 服务器返回的错误
type Error struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d, code %d)", e.Detail, e.Status, e.Code)
}

// --- 认证 ---

// LoginResponse 登录结果
type LoginResponse struct {
	APIKey string `json:"api_key"`
	UserID string `json:"user_id"`
}

// Login 使用 user_id 和密码换取 API Key
func (c *Client) Login(ctx context.Context, userID, password string) (*LoginResponse, error) {
	var result LoginResponse
	body := map[string]string{"user_id": userID, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 门禁 ---

// ReadyResponse ready 动作结果
type ReadyResponse struct {
	UserID     string   `json:"user_id"`
	UserName   *string  `json:"user_name"`
	Valid      bool     `json:"valid"`
	CameraList []string `json:"camera_list"`
}

// MessageResponse 只带提示信息的响应
type MessageResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SnapshotResponse snapshot 动作结果
type SnapshotResponse struct {
	CamName  string `json:"cam_name"`
	Snapshot string `json:"snapshot"`
}

// Image 解码 data URI 中的 JPEG 数据
func (s *SnapshotResponse) Image() ([]byte, error) {
	_, encoded, ok := strings.Cut(s.Snapshot, ",")
	if !ok {
		return nil, fmt.Errorf("抓拍数据格式不正确")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Ready 查询当前用户和可用摄像头
func (c *Client) Ready(ctx context.Context) (*ReadyResponse, error) {
	var result ReadyResponse
	if err := c.action(ctx, "/gate", "ready", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Open 请求开门
func (c *Client) Open(ctx context.Context) (*MessageResponse, error) {
	var result MessageResponse
	info := map[string]string{"client": "gatectl"}
	if err := c.action(ctx, "/gate", "open", info, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Snapshot 获取摄像头实时画面，camName 为空时使用默认摄像头
func (c *Client) Snapshot(ctx context.Context, camName string) (*SnapshotResponse, error) {
	var result SnapshotResponse
	if err := c.action(ctx, "/gate", "snapshot", map[string]string{"cam_name": camName}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 用户 ---

// User 用户信息
type User struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	APIKey        string          `json:"api_key"`
	Name          *string         `json:"name"`
	Plates        json.RawMessage `json:"plates"`
	DateFrom      string          `json:"date_from"`
	DateTo        string          `json:"date_to"`
	HourFrom      int             `json:"hour_from"`
	HourTo        int             `json:"hour_to"`
	Flag          bool            `json:"flag"`
	RegDate       time.Time       `json:"regdate"`
	APIKeyDrifted bool            `json:"api_key_drifted"`
}

// UserInput 创建用户参数，nil 字段使用服务端默认值
type UserInput struct {
	UserID   *string  `json:"user_id,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Plates   []string `json:"plates,omitempty"`
	DateFrom *string  `json:"date_from,omitempty"`
	DateTo   *string  `json:"date_to,omitempty"`
	HourFrom *int     `json:"hour_from,omitempty"`
	HourTo   *int     `json:"hour_to,omitempty"`
	Flag     *bool    `json:"flag,omitempty"`
	Password *string  `json:"password,omitempty"`
}

// ListUsers 获取全部用户
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.action(ctx, "/users", "list", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser 创建用户
func (c *Client) CreateUser(ctx context.Context, in *UserInput) (*User, error) {
	var result struct {
		Data User `json:"data"`
	}
	if err := c.action(ctx, "/users", "create", in, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// RemoveUser 按 user_id 删除用户
func (c *Client) RemoveUser(ctx context.Context, userID string) error {
	return c.action(ctx, "/users", "remove", map[string]string{"user_id": userID}, nil)
}

// --- 日志 ---

// AccessLog 访问日志
type AccessLog struct {
	ID        int64           `json:"id"`
	RegDate   string          `json:"regdate"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    *string         `json:"user_id"`
	EventInfo json.RawMessage `json:"eventinfo"`
	UserAgent string          `json:"user_agent"`
	Snapshot  string          `json:"snapshot"`
	Flag      string          `json:"flag"`
	CamNo     int             `json:"cam_no"`
}

// LogPage 一页访问日志
type LogPage struct {
	Logs   []AccessLog `json:"logs"`
	Page   int         `json:"page"`
	Offset int         `json:"offset"`
	Total  int64       `json:"total"`
}

// ListLogs 分页获取访问日志，size 为 0 时使用服务端默认值
func (c *Client) ListLogs(ctx context.Context, page, size int) (*LogPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if size > 0 {
		// 服务端沿用 offset 作为每页条数
		q.Set("offset", strconv.Itoa(size))
	}
	var result LogPage
	if err := c.do(ctx, http.MethodGet, "/logs?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 设备凭证 ---

// DeviceCredential 设备凭证
type DeviceCredential struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Scope      string     `json:"scope"`
	Revoked    bool       `json:"revoked"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IssuedDevice 签发结果，token 只在签发时返回一次
type IssuedDevice struct {
	Credential DeviceCredential `json:"credential"`
	Token      string           `json:"token"`
}

// ListDevices 获取全部设备凭证
func (c *Client) ListDevices(ctx context.Context) ([]DeviceCredential, error) {
	var creds []DeviceCredential
	if err := c.action(ctx, "/devices", "list", nil, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// IssueDevice 签发设备凭证
func (c *Client) IssueDevice(ctx context.Context, name, scope string) (*IssuedDevice, error) {
	var result struct {
		Data IssuedDevice `json:"data"`
	}
	if err := c.action(ctx, "/devices", "issue", map[string]string{"name": name, "scope": scope}, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// RevokeDevice 撤销设备凭证
func (c *Client) RevokeDevice(ctx context.Context, name string) error {
	return c.action(ctx, "/devices", "revoke", map[string]string{"name": name}, nil)
}

// --- 通用请求封装 ---

// actionRequest 动作式接口请求体
type actionRequest struct {
	Action string      `json:"action"`
	APIKey string      `json:"api_key"`
	Data   interface{} `json:"data,omitempty"`
}

func (c *Client) action(ctx context.Context, path, action string, data, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, &actionRequest{Action: action, APIKey: c.apiKey, Data: data}, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
