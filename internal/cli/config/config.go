// Package config 管理 gatectl 的本地配置
// 登录状态保存在 ~/.gatectl/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultServerURL 未配置时使用的服务器地址
const DefaultServerURL = "http://localhost:8080"

// Config gatectl 配置结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Account AccountConfig `mapstructure:"account"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	URL string `mapstructure:"url"` // HTTP API 地址
}

// AccountConfig 登录信息
type AccountConfig struct {
	UserID string `mapstructure:"user_id"` // 登录的用户标识
	APIKey string `mapstructure:"api_key"` // 登录换取的 API Key
}

var (
	v   *viper.Viper
	cfg *Config
)

// Init 读取默认位置的配置
func Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("获取用户目录失败: %w", err)
	}
	return InitAt(filepath.Join(home, ".gatectl"))
}

// InitAt 读取指定目录下的 config.yaml，目录不存在时创建
// 参数:
//   - dir: 配置目录
//
// 返回:
//   - error: 创建目录或解析配置失败
func InitAt(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	v = viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	v.SetConfigType("yaml")
	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("account.user_id", "")
	v.SetDefault("account.api_key", "")

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("读取配置失败: %w", err)
		}
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	return nil
}

// Get 获取配置
func Get() *Config {
	return cfg
}

// GetServerURL 获取服务器地址
func GetServerURL() string {
	if cfg == nil || cfg.Server.URL == "" {
		return DefaultServerURL
	}
	return cfg.Server.URL
}

// SetServerURL 设置本次运行使用的服务器地址（不落盘，登录时一起保存）
func SetServerURL(url string) {
	url = strings.TrimRight(url, "/")
	if v != nil {
		v.Set("server.url", url)
	}
	if cfg != nil {
		cfg.Server.URL = url
	}
}

// GetAPIKey 获取已保存的 API Key
func GetAPIKey() string {
	if cfg == nil {
		return ""
	}
	return cfg.Account.APIKey
}

// GetUserID 获取已登录的用户标识
func GetUserID() string {
	if cfg == nil {
		return ""
	}
	return cfg.Account.UserID
}

// IsLoggedIn 检查是否已登录
func IsLoggedIn() bool {
	return GetAPIKey() != ""
}

// SaveAuth 保存登录结果
func SaveAuth(userID, apiKey string) error {
	v.Set("account.user_id", userID)
	v.Set("account.api_key", apiKey)
	cfg.Account.UserID = userID
	cfg.Account.APIKey = apiKey
	return write()
}

// ClearAuth 清除本地凭证
func ClearAuth() error {
	v.Set("account.user_id", "")
	v.Set("account.api_key", "")
	cfg.Account = AccountConfig{}
	return write()
}

func write() error {
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("保存配置失败: %w", err)
	}
	// 文件里有 API Key，只允许本人读取
	return os.Chmod(v.ConfigFileUsed(), 0600)
}
