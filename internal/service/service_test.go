package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gate-control/internal/cache"
	"gate-control/internal/config"
	"gate-control/internal/model"
	"gate-control/internal/repository"
	"gate-control/pkg/jwt"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// recordingPublisher 记录发布的访问事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []AccessEvent
}

func (p *recordingPublisher) PublishAccessEvent(_ context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(AccessEvent))
	return nil
}

func (p *recordingPublisher) all() []AccessEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AccessEvent(nil), p.events...)
}

// testEnv 服务层测试环境：内存 SQLite + miniredis + 假摄像头
type testEnv struct {
	cfg       *config.Config
	mr        *miniredis.Miniredis
	camera    *fakeCamera
	userRepo  *repository.UserRepository
	logRepo   *repository.AccessLogRepository
	users     *UserService
	logs      *LogService
	cameras   *CameraService
	gate      *GateService
	auth      *AuthService
	devices   *DeviceService
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.AccessLog{}, &model.DeviceCredential{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisCache := cache.NewRedisCacheWithClient(client)

	fc := newFakeCamera(t)
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          testJWTSecret,
			DeviceTokenExpire:  24 * time.Hour,
			LoginFailLimit:     3,
			LoginFailWindow:    5 * time.Minute,
			LoginBlockDuration: 15 * time.Minute,
		},
		Gate: config.GateConfig{
			UTCOffsetHours: 9,
			LogRetention:   30 * 24 * time.Hour,
			OpenSeconds:    1,
			DoorCamera:     "main",
			ExitCamera:     "sub1",
			DeviceTimeout:  2 * time.Second,
			LogPageSize:    20,
			LogPageSizeMax: 100,
		},
		Cameras: map[string]config.CameraConfig{
			"main": fc.cameraConfig(),
			"sub1": fc.headerCameraConfig(),
		},
	}

	env := &testEnv{
		cfg:       cfg,
		mr:        mr,
		camera:    fc,
		userRepo:  repository.NewUserRepository(db),
		logRepo:   repository.NewAccessLogRepository(db),
		publisher: &recordingPublisher{},
	}
	env.cameras = NewCameraService(cfg)
	env.users = NewUserService(env.userRepo, cfg.Auth.APIKeySecret)
	env.logs = NewLogService(env.logRepo, env.cameras, cfg.Gate)
	env.gate = NewGateService(cfg.Gate, env.users, env.logs, env.cameras, env.publisher)
	env.auth = NewAuthService(env.userRepo, redisCache, cfg.Auth)
	env.devices = NewDeviceService(
		repository.NewDeviceCredentialRepository(db),
		redisCache,
		jwt.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.DeviceTokenExpire),
	)
	return env
}

// setClock 固定服务层的当前时间
func (e *testEnv) setClock(now time.Time) {
	e.gate.SetClock(func() time.Time { return now })
}

// allLogs 按时间倒序返回全部日志
func (e *testEnv) allLogs(t *testing.T) []model.AccessLog {
	t.Helper()
	logs, err := e.logRepo.List(context.Background(), 0, 1000)
	require.NoError(t, err)
	return logs
}

func eventInfo(t *testing.T, entry model.AccessLog) map[string]interface{} {
	t.Helper()
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.EventInfo, &info))
	return info
}

func ptr[T any](v T) *T { return &v }

// createBob 创建一个工作日 9-18 点可通行的用户
func createBob(t *testing.T, env *testEnv) *model.User {
	t.Helper()
	user, err := env.users.Create(context.Background(), &UpsertUserRequest{
		UserID:   ptr("bob"),
		Name:     ptr("Bob"),
		DateFrom: ptr("2024-01-01"),
		DateTo:   ptr("2024-12-31"),
		HourFrom: ptr(9),
		HourTo:   ptr(18),
		Password: ptr("hunter22"),
	})
	require.NoError(t, err)
	return user
}
