package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-control/internal/model"
)

var browser = RequestMeta{
	ClientIP:   "203.0.113.7",
	UserAgent:  "Mozilla/5.0",
	ClientInfo: map[string]interface{}{"platform": "iPhone"},
}

func TestGateService_OpenScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := createBob(t, env)

	t.Run("inside the window opens the door", func(t *testing.T) {
		env.setClock(at("2024-06-01 10:00"))

		res, err := env.gate.Open(ctx, bob.APIKey, browser)
		require.NoError(t, err)
		assert.Equal(t, "opened OK", res.Message)
		assert.Equal(t, []string{"mode=trig&secs=1"}, env.camera.calls())

		logs := env.allLogs(t)
		require.Len(t, logs, 1)
		entry := logs[0]
		assert.Equal(t, "bob", *entry.UserID)
		assert.Equal(t, "2024-06-01 10:00:00", entry.RegDate)
		assert.Equal(t, "Mozilla/5.0", entry.UserAgent)
		assert.True(t, strings.HasPrefix(entry.Snapshot, SnapshotPrefix))
		assert.Equal(t, 0, entry.CamNo)
		assert.Equal(t, model.LogFlagDefault, entry.Flag)

		info := eventInfo(t, entry)
		assert.Equal(t, "203.0.113.7", info["ip"])
		assert.Equal(t, "open", info["mode"])
		assert.Equal(t, bob.APIKey, info["api_key"])
		assert.Equal(t, true, info["success"])
		assert.Equal(t, map[string]interface{}{"platform": "iPhone"}, info["client_info"])
	})

	t.Run("outside the window is rejected but logged", func(t *testing.T) {
		env.setClock(at("2024-06-01 20:00"))

		_, err := env.gate.Open(ctx, bob.APIKey, browser)
		assert.True(t, errors.Is(err, ErrAuthorizationFailed))
		assert.Len(t, env.camera.calls(), 1, "relay must not fire")

		logs := env.allLogs(t)
		require.Len(t, logs, 2)
		assert.Equal(t, "2024-06-01 20:00:00", logs[0].RegDate)
		info := eventInfo(t, logs[0])
		assert.Equal(t, false, info["success"])
		assert.Contains(t, info["reason"], "outside the access window")
	})

	t.Run("disabled user is rejected but logged", func(t *testing.T) {
		env.setClock(at("2024-06-01 11:00"))
		_, err := env.users.Modify(ctx, &UpsertUserRequest{ID: bob.ID, Flag: ptr(false)})
		require.NoError(t, err)
		defer func() {
			_, err := env.users.Modify(ctx, &UpsertUserRequest{ID: bob.ID, Flag: ptr(true)})
			require.NoError(t, err)
		}()

		_, err = env.gate.Open(ctx, bob.APIKey, browser)
		assert.True(t, errors.Is(err, ErrAuthorizationFailed))
		assert.Contains(t, err.Error(), "disabled")
		assert.Len(t, env.allLogs(t), 3)
	})

	t.Run("relay failure is reported and logged", func(t *testing.T) {
		env.setClock(at("2024-06-01 12:00"))
		env.camera.setRelayReply("#500 busy")
		defer env.camera.setRelayReply("#200 OK")

		_, err := env.gate.Open(ctx, bob.APIKey, browser)
		assert.True(t, errors.Is(err, ErrDeviceUnavailable))

		logs := env.allLogs(t)
		require.Len(t, logs, 4)
		assert.Equal(t, false, eventInfo(t, logs[0])["success"])
	})

	t.Run("snapshot failure does not block opening", func(t *testing.T) {
		env.setClock(at("2024-06-01 13:00"))
		env.camera.setSnapshotStatus(500)
		defer env.camera.setSnapshotStatus(200)

		_, err := env.gate.Open(ctx, bob.APIKey, browser)
		require.NoError(t, err)

		logs := env.allLogs(t)
		require.Len(t, logs, 5)
		assert.Empty(t, logs[0].Snapshot)
	})

	t.Run("unknown api key writes nothing", func(t *testing.T) {
		_, err := env.gate.Open(ctx, "nope", browser)
		assert.True(t, errors.Is(err, ErrAuthenticationFailed))
		assert.Len(t, env.allLogs(t), 5)
	})

	events := env.publisher.all()
	require.Len(t, events, 5)
	assert.True(t, events[0].Success)
	assert.Equal(t, model.ModeOpen, events[0].Mode)
	assert.False(t, events[1].Success)
	assert.Contains(t, events[1].Reason, "outside the access window")
}

func TestGateService_LogRetention(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := createBob(t, env)

	env.setClock(at("2024-04-01 10:00"))
	_, err := env.gate.Open(ctx, bob.APIKey, browser)
	require.NoError(t, err)
	first := env.allLogs(t)[0]

	env.setClock(at("2024-04-20 10:00"))
	_, err = env.gate.Open(ctx, bob.APIKey, browser)
	require.NoError(t, err)
	assert.Len(t, env.allLogs(t), 2)

	// 45 天后第一条已超过保留期，被原地覆盖
	env.setClock(at("2024-05-16 10:00"))
	_, err = env.gate.Open(ctx, bob.APIKey, browser)
	require.NoError(t, err)

	logs := env.allLogs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, first.ID, logs[0].ID)
	assert.Equal(t, "2024-05-16 10:00:00", logs[0].RegDate)
	assert.Equal(t, "2024-04-20 10:00:00", logs[1].RegDate)
}

func TestGateService_Ready(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := createBob(t, env)

	env.setClock(at("2024-06-01 10:00"))
	res, err := env.gate.Ready(ctx, bob.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "bob", res.UserID)
	assert.Equal(t, "Bob", *res.UserName)
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"main", "sub1"}, res.CameraList)

	env.setClock(at("2024-06-01 20:00"))
	res, err = env.gate.Ready(ctx, bob.APIKey)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = env.gate.Ready(ctx, "")
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))

	// ready 不写日志
	assert.Empty(t, env.allLogs(t))
}

func TestGateService_Snapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := createBob(t, env)

	res, err := env.gate.Snapshot(ctx, bob.APIKey, "")
	require.NoError(t, err)
	assert.Equal(t, "main", res.CamName)
	assert.Equal(t, EncodeSnapshot(fakeJPEG), res.Snapshot)

	res, err = env.gate.Snapshot(ctx, bob.APIKey, "sub1")
	require.NoError(t, err)
	assert.Equal(t, "sub1", res.CamName)

	_, err = env.gate.Snapshot(ctx, bob.APIKey, "garage")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = env.gate.Snapshot(ctx, "bad", "main")
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
}

func TestGateService_Exit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setClock(at("2024-06-01 23:30"))
	cred := &model.DeviceCredential{ID: 1, Name: "exit-cam", Scope: model.ScopeExit}

	res, err := env.gate.Exit(ctx, cred, RequestMeta{ClientIP: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, "opened", res.Message)
	assert.Equal(t, []string{"mode=trig&secs=1"}, env.camera.calls())

	logs := env.allLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "device:exit-cam", *logs[0].UserID)
	assert.Equal(t, ExternalUserAgent, logs[0].UserAgent)
	assert.Equal(t, 1, logs[0].CamNo)
	assert.Equal(t, EncodeSnapshot(fakeJPEG), logs[0].Snapshot)
	info := eventInfo(t, logs[0])
	assert.Equal(t, "external", info["ip"])
	assert.Equal(t, "exit", info["mode"])
	assert.Equal(t, "10.0.0.5", info["remote_ip"])

	env.camera.setRelayReply("timeout")
	_, err = env.gate.Exit(ctx, cred, RequestMeta{})
	assert.True(t, errors.Is(err, ErrDeviceUnavailable))
	assert.Len(t, env.allLogs(t), 2)
}

func TestGateService_StoreSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.setClock(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC))
	cred := &model.DeviceCredential{ID: 2, Name: "lpr", Scope: model.ScopeSnapshot}

	entry, err := env.gate.StoreSnapshot(ctx, cred, map[string]string{"plate": "12가3456"}, fakeJPEG, RequestMeta{ClientIP: "10.0.0.9", UserAgent: "lpr/1.0"})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)

	logs := env.allLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "snapshot", *logs[0].UserID)
	assert.Equal(t, "2024-06-01 12:00:00", logs[0].RegDate)
	assert.Equal(t, EncodeSnapshot(fakeJPEG), logs[0].Snapshot)
	info := eventInfo(t, logs[0])
	assert.Equal(t, "snapshot", info["mode"])
	assert.Equal(t, "12가3456", info["plate"])
	assert.Equal(t, "lpr", info["credential"])

	// 没有附带图片时不主动抓拍
	_, err = env.gate.StoreSnapshot(ctx, cred, nil, nil, RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, env.allLogs(t)[0].Snapshot)
	assert.Empty(t, env.camera.calls())
}
