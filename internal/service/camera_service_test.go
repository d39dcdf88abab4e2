package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-control/internal/config"
)

var fakeJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'}

// fakeCamera 模拟带继电器的网络摄像头
type fakeCamera struct {
	mu         sync.Mutex
	relayReply string
	relayCalls []string
	snapStatus int
	user, pass string
	server     *httptest.Server
}

func newFakeCamera(t *testing.T) *fakeCamera {
	t.Helper()
	fc := &fakeCamera{relayReply: "#200 OK", snapStatus: http.StatusOK, user: "admin", pass: "secret"}

	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/snapshot.cgi", func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != fc.user || p != fc.pass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fc.mu.Lock()
		status := fc.snapStatus
		fc.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write(fakeJPEG)
	})
	mux.HandleFunc("/cgi-bin/do.cgi", func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.relayCalls = append(fc.relayCalls, r.URL.RawQuery)
		reply := fc.relayReply
		fc.mu.Unlock()
		_, _ = w.Write([]byte(reply))
	})
	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "tkn" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":"` + base64.StdEncoding.EncodeToString(fakeJPEG) + `"}`))
	})

	fc.server = httptest.NewServer(mux)
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCamera) setRelayReply(reply string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.relayReply = reply
}

func (fc *fakeCamera) setSnapshotStatus(status int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.snapStatus = status
}

func (fc *fakeCamera) calls() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.relayCalls...)
}

// cameraConfig 返回指向假设备的配置，CGI 路径故意带多余斜杠
func (fc *fakeCamera) cameraConfig() config.CameraConfig {
	u, _ := url.Parse(fc.server.URL)
	port, _ := strconv.Atoi(u.Port())
	return config.CameraConfig{
		Address:     u.Hostname(),
		Port:        port,
		UserID:      fc.user,
		UserPW:      fc.pass,
		SnapshotCGI: "/cgi-bin/snapshot.cgi",
		DOCGI: config.RelayCGI{
			On:   "//cgi-bin/do.cgi?mode=on",
			Off:  "/cgi-bin/do.cgi?mode=off",
			Trig: "/cgi-bin/do.cgi?mode=trig&secs=",
		},
	}
}

func (fc *fakeCamera) headerCameraConfig() config.CameraConfig {
	cam := fc.cameraConfig()
	cam.SnapshotCGI = "api/snapshot"
	cam.Header = map[string]string{"x-token": "tkn"}
	return cam
}

func newTestCameraService(fc *fakeCamera) *CameraService {
	cfg := &config.Config{
		Gate: config.GateConfig{DeviceTimeout: 2 * time.Second},
		Cameras: map[string]config.CameraConfig{
			"main": fc.cameraConfig(),
			"sub1": fc.headerCameraConfig(),
		},
	}
	return NewCameraService(cfg)
}

func TestCameraService_Snapshot(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCamera(t)
	svc := newTestCameraService(fc)

	t.Run("plain jpeg", func(t *testing.T) {
		img, err := svc.FetchSnapshot(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, fakeJPEG, img)

		snap, err := svc.Snapshot(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, "data:image/jpg;base64,"+base64.StdEncoding.EncodeToString(fakeJPEG), snap)
	})

	t.Run("header camera returns json", func(t *testing.T) {
		img, err := svc.FetchSnapshot(ctx, "sub1")
		require.NoError(t, err)
		assert.Equal(t, fakeJPEG, img)
	})

	t.Run("unknown camera", func(t *testing.T) {
		_, err := svc.Snapshot(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("device error", func(t *testing.T) {
		fc.setSnapshotStatus(http.StatusInternalServerError)
		defer fc.setSnapshotStatus(http.StatusOK)

		_, err := svc.Snapshot(ctx, "main")
		assert.True(t, errors.Is(err, ErrDeviceUnavailable))
		assert.Empty(t, svc.CaptureSnapshot(ctx, "main"))
	})

	assert.Equal(t, []string{"main", "sub1"}, svc.CameraNames())
	assert.Equal(t, 1, svc.CameraIndex("sub1"))
	assert.Equal(t, 0, svc.CameraIndex("missing"))
}

func TestCameraService_TriggerRelay(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCamera(t)
	svc := newTestCameraService(fc)

	ok, err := svc.TriggerRelay(ctx, "main", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.TriggerRelay(ctx, "main", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.TriggerRelay(ctx, "main", -1)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"mode=trig&secs=1", "mode=on", "mode=off"}, fc.calls())

	t.Run("non 200 body is a failure", func(t *testing.T) {
		fc.setRelayReply("#401 Unauthorized")
		defer fc.setRelayReply("#200 OK")

		ok, err := svc.TriggerRelay(ctx, "main", 1)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrDeviceUnavailable))
	})

	t.Run("unreachable device", func(t *testing.T) {
		down := newFakeCamera(t)
		cfg := &config.Config{Cameras: map[string]config.CameraConfig{"main": down.cameraConfig()}}
		down.server.Close()

		ok, err := NewCameraService(cfg).TriggerRelay(ctx, "main", 1)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrDeviceUnavailable))
	})

	t.Run("unconfigured relay camera", func(t *testing.T) {
		ok, err := svc.TriggerRelay(ctx, "gate-9", 1)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrDeviceUnavailable))
	})
}

func TestDeviceURL(t *testing.T) {
	cam := config.CameraConfig{Address: "192.168.0.10", Port: 8080}
	assert.Equal(t, "http://192.168.0.10:8080/cgi-bin/snap.cgi", deviceURL(cam, "/cgi-bin//snap.cgi"))

	cam = config.CameraConfig{Address: "https://cam.local/"}
	assert.Equal(t, "https://cam.local:80/a/b", deviceURL(cam, "a/b"))
}
