// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 进程启动时加载一次，之后只读
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`  // 服务器配置
	MySQL   MySQLConfig             `mapstructure:"mysql"`   // MySQL 配置
	Redis   RedisConfig             `mapstructure:"redis"`   // Redis 配置
	Auth    AuthConfig              `mapstructure:"auth"`    // 认证配置
	Gate    GateConfig              `mapstructure:"gate"`    // 门禁行为配置
	Cameras map[string]CameraConfig `mapstructure:"cameras"` // 摄像头/继电器设备表
	Log     LogConfig               `mapstructure:"log"`     // 日志配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`            // 监听端口，默认 8080
	Mode           string   `mapstructure:"mode"`            // 运行模式: debug / release
	CORS           []string `mapstructure:"cors"`            // CORS 允许的域名
	TrustedProxies []string `mapstructure:"trusted_proxies"` // 可信代理，用于获取真实客户端 IP
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`           // 数据库主机地址
	Port         int    `mapstructure:"port"`           // 数据库端口
	Username     string `mapstructure:"username"`       // 数据库用户名
	Password     string `mapstructure:"password"`       // 数据库密码
	Database     string `mapstructure:"database"`       // 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// AuthConfig 认证相关配置
type AuthConfig struct {
	// APIKeySecret API Key 派生使用的 HMAC 密钥
	// 为空时使用旧版 MD5(user_id) 派生，保证历史 Key 可用
	APIKeySecret string `mapstructure:"api_key_secret"`

	JWTSecret         string        `mapstructure:"jwt_secret"`          // 设备凭证签名密钥，至少32字符
	DeviceTokenExpire time.Duration `mapstructure:"device_token_expire"` // 设备凭证有效期

	LoginFailLimit     int           `mapstructure:"login_fail_limit"`     // 窗口内允许的登录失败次数
	LoginFailWindow    time.Duration `mapstructure:"login_fail_window"`    // 登录失败计数窗口
	LoginBlockDuration time.Duration `mapstructure:"login_block_duration"` // 超限后封禁时长
}

// GateConfig 门禁行为配置
type GateConfig struct {
	UTCOffsetHours int           `mapstructure:"utc_offset_hours"` // 固定时区偏移（小时），默认 +9
	LogRetention   time.Duration `mapstructure:"log_retention"`    // 访问日志保留期，超过后覆盖最旧记录
	OpenSeconds    int           `mapstructure:"open_seconds"`     // 开门时继电器吸合秒数
	DoorCamera     string        `mapstructure:"door_camera"`      // 带继电器的门口摄像头
	ExitCamera     string        `mapstructure:"exit_camera"`      // 外部出口触发时抓拍的摄像头
	DeviceTimeout  time.Duration `mapstructure:"device_timeout"`   // 设备 HTTP 请求超时
	LogPageSize    int           `mapstructure:"log_page_size"`    // 日志默认分页大小
	LogPageSizeMax int           `mapstructure:"log_page_size_max"` // 日志分页大小上限
}

// Location 返回固定偏移的时区（不考虑夏令时）
func (g GateConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", g.UTCOffsetHours), g.UTCOffsetHours*3600)
}

// CameraConfig 单个摄像头设备描述
type CameraConfig struct {
	Address     string            `mapstructure:"address"`      // 设备地址（主机名或 IP）
	Port        int               `mapstructure:"port"`         // 设备端口
	UserID      string            `mapstructure:"userid"`       // Basic 认证用户名
	UserPW      string            `mapstructure:"userpw"`       // Basic 认证密码
	SnapshotCGI string            `mapstructure:"snapshot_cgi"` // 抓拍 CGI 路径
	DOCGI       RelayCGI          `mapstructure:"do_cgi"`       // 继电器 CGI 路径
	Header      map[string]string `mapstructure:"header"`       // 额外请求头；设置后抓拍接口返回 JSON
}

// RelayCGI 继电器（数字输出）CGI 路径
type RelayCGI struct {
	On   string `mapstructure:"on"`   // 常开
	Off  string `mapstructure:"off"`  // 关闭
	Trig string `mapstructure:"trig"` // 定时触发，秒数拼接在末尾
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别: debug/info/warn/error
	Format     string `mapstructure:"format"`      // 日志格式: json/text
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSize    int    `mapstructure:"max_size"`    // 单个文件最大尺寸（MB）
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧文件数量
	MaxAge     int    `mapstructure:"max_age"`     // 旧文件保留天数
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载或校验失败则返回错误
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	// 例如: MYSQL_HOST -> mysql.host
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置的一致性
func (c *Config) Validate() error {
	if c.Gate.UTCOffsetHours < -12 || c.Gate.UTCOffsetHours > 14 {
		return fmt.Errorf("gate.utc_offset_hours out of range: %d", c.Gate.UTCOffsetHours)
	}
	for name, cam := range c.Cameras {
		if cam.Address == "" {
			return fmt.Errorf("camera %q: address is required", name)
		}
	}
	if len(c.Cameras) > 0 {
		if _, ok := c.Cameras[c.Gate.DoorCamera]; !ok {
			return fmt.Errorf("gate.door_camera %q is not a configured camera", c.Gate.DoorCamera)
		}
	}
	return nil
}

// CameraNames 返回按名称排序的摄像头列表
func (c *Config) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for name := range c.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// MySQL 配置
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.port", "MYSQL_PORT")
	v.BindEnv("mysql.username", "MYSQL_USERNAME")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("mysql.database", "MYSQL_DATABASE")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// 认证密钥
	v.BindEnv("auth.api_key_secret", "API_KEY_SECRET")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
}

// setDefaults 设置配置项的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})

	// MySQL 默认配置
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.database", "gate")
	v.SetDefault("mysql.charset", "utf8mb4")
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_lifetime", 3600)

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	// 认证默认配置
	v.SetDefault("auth.device_token_expire", "8760h")
	v.SetDefault("auth.login_fail_limit", 5)
	v.SetDefault("auth.login_fail_window", "5m")
	v.SetDefault("auth.login_block_duration", "15m")

	// 门禁默认配置
	v.SetDefault("gate.utc_offset_hours", 9)
	v.SetDefault("gate.log_retention", "720h")
	v.SetDefault("gate.open_seconds", 1)
	v.SetDefault("gate.door_camera", "main")
	v.SetDefault("gate.exit_camera", "sub1")
	v.SetDefault("gate.device_timeout", "10s")
	v.SetDefault("gate.log_page_size", 20)
	v.SetDefault("gate.log_page_size_max", 100)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 30)
}
