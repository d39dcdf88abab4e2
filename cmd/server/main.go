// Package main 是门禁服务端的入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gate-control/internal/cache"
	"gate-control/internal/config"
	"gate-control/internal/handler"
	applog "gate-control/internal/logger"
	"gate-control/internal/middleware"
	"gate-control/internal/model"
	"gate-control/internal/repository"
	"gate-control/internal/service"
	"gate-control/internal/websocket"
	"gate-control/pkg/jwt"
)

func main() {
	// 加载配置
	configDir := os.Getenv("GATE_CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logCloser, err := applog.Setup(cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to init logger: %v", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	if cfg.Auth.APIKeySecret == "" {
		logrus.Warn("auth.api_key_secret is empty, api keys are derived with legacy MD5")
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		logrus.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		logrus.Fatalf("Failed to init redis: %v", err)
	}

	// 初始化设备凭证签发服务
	jwtService := jwt.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.DeviceTokenExpire)

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	logRepo := repository.NewAccessLogRepository(db)
	credRepo := repository.NewDeviceCredentialRepository(db)

	// 初始化 Service 层
	cameraService := service.NewCameraService(cfg)
	userService := service.NewUserService(userRepo, cfg.Auth.APIKeySecret)
	logService := service.NewLogService(logRepo, cameraService, cfg.Gate)
	gateService := service.NewGateService(cfg.Gate, userService, logService, cameraService, redisCache)
	authService := service.NewAuthService(userRepo, redisCache, cfg.Auth)
	deviceService := service.NewDeviceService(credRepo, redisCache, jwtService)

	// 初始化 WebSocket Hub，订阅 Redis 访问事件
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	wsHub := websocket.NewHub()
	go wsHub.Run(hubCtx)

	events := redisCache.SubscribeAccessEvents(hubCtx)
	go wsHub.RelayEvents(hubCtx, events.Channel())

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logrus.Fatalf("Invalid trusted proxies: %v", err)
	}

	corsConfig := middleware.DefaultCORSConfig(cfg.Server.CORS)

	// 全局中间件
	router.Use(middleware.RecoveryMiddleware())       // 恢复 panic
	router.Use(middleware.LoggerMiddleware())         // 请求日志
	router.Use(middleware.CORSMiddleware(corsConfig)) // CORS

	// 注册路由
	registerRoutes(router, routeDeps{
		userService:   userService,
		deviceService: deviceService,
		health:        handler.NewHealthHandler(db, redisCache),
		auth:          handler.NewAuthHandler(authService),
		gate:          handler.NewGateHandler(gateService),
		logs:          handler.NewLogHandler(logService),
		users:         handler.NewUserHandler(userService),
		devices:       handler.NewDeviceHandler(userService, deviceService),
		ws:            websocket.NewHandler(wsHub, corsConfig.OriginAllowed),
	})

	// 创建 HTTP 服务器
	// 开门请求包含继电器调用和抓拍，写超时要覆盖多次设备请求
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3*cfg.Gate.DeviceTimeout + 5*time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		logrus.Infof("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// 停止事件转发并关闭监控连接
	stopHub()
	if err := events.Close(); err != nil {
		logrus.Warnf("Failed to close event subscription: %v", err)
	}

	if err := redisCache.Close(); err != nil {
		logrus.Warnf("Failed to close redis: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logrus.Info("Server exited")
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 时间统一按 UTC 存取，展示用的墙上时间单独存在 regdate 字段
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	logrus.Info("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.AccessLog{},
		&model.DeviceCredential{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

// routeDeps 路由注册需要的处理器和服务
type routeDeps struct {
	userService   *service.UserService
	deviceService *service.DeviceService

	health  *handler.HealthHandler
	auth    *handler.AuthHandler
	gate    *handler.GateHandler
	logs    *handler.LogHandler
	users   *handler.UserHandler
	devices *handler.DeviceHandler
	ws      *websocket.Handler
}

// registerRoutes 注册所有路由
func registerRoutes(router *gin.Engine, d routeDeps) {
	apiKeyAuth := middleware.APIKeyAuthMiddleware(d.userService)

	// 健康检查
	router.GET("/health", d.health.Check)

	// 登录（失败次数限制在服务层按 IP 处理）
	router.POST("/login", d.auth.Login)

	// 网页端门禁动作，api_key 在请求体中
	router.POST("/gate", d.gate.Action)

	// 外部设备入口，需要设备凭证
	router.GET("/gate", middleware.DeviceAuthMiddleware(d.deviceService, model.ScopeExit), d.gate.Exit)
	router.POST("/snapshot", middleware.DeviceAuthMiddleware(d.deviceService, model.ScopeSnapshot), d.gate.UploadSnapshot)

	// 访问日志
	logs := router.Group("/logs")
	logs.Use(apiKeyAuth)
	{
		logs.GET("", d.logs.List)
		logs.GET("/:id", d.logs.Get)
	}

	// 管理接口，api_key 在请求体中
	router.POST("/users", d.users.Action)
	router.POST("/devices", d.devices.Action)

	// 实时访问事件
	router.GET("/ws/events", apiKeyAuth, d.ws.HandleEvents)
}
