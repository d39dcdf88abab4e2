package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gatectl")
	require.NoError(t, InitAt(dir))

	assert.DirExists(t, dir)
	assert.Equal(t, DefaultServerURL, GetServerURL())
	assert.False(t, IsLoggedIn())
	assert.Empty(t, GetUserID())
}

func TestConfig_SaveAndClearAuth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitAt(dir))

	SetServerURL("https://gate.example.com/")
	require.NoError(t, SaveAuth("bob", "key-bob"))

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// 重新读取磁盘上的配置
	require.NoError(t, InitAt(dir))
	assert.True(t, IsLoggedIn())
	assert.Equal(t, "bob", GetUserID())
	assert.Equal(t, "key-bob", GetAPIKey())
	assert.Equal(t, "https://gate.example.com", GetServerURL())

	require.NoError(t, ClearAuth())
	require.NoError(t, InitAt(dir))
	assert.False(t, IsLoggedIn())
	assert.Equal(t, "https://gate.example.com", GetServerURL())
}

func TestConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0600))

	assert.Error(t, InitAt(dir))
}
