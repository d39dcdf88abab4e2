package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gate-control/internal/cli/websocket"
)

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	bob := "bob"

	line := formatEvent(&websocket.AccessEvent{LogID: 12, UserID: &bob, Mode: "open", Success: true, Timestamp: ts})
	assert.Contains(t, line, "2024-06-01 09:30:00")
	assert.Contains(t, line, "#12")
	assert.Contains(t, line, "bob")
	assert.Contains(t, line, "✓")

	line = formatEvent(&websocket.AccessEvent{LogID: 13, Mode: "exit", Success: false, Reason: "device unavailable", Timestamp: ts})
	assert.Contains(t, line, "exit")
	assert.Contains(t, line, " - ")
	assert.Contains(t, line, "✗ device unavailable")
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"login", "logout", "status", "open", "snapshot", "users", "logs", "devices", "watch"}
	for _, name := range want {
		found, _, err := rootCmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, found.Name())
		}
	}

	for _, path := range [][]string{{"users", "list"}, {"users", "create"}, {"users", "remove"}, {"devices", "issue"}, {"devices", "revoke"}, {"devices", "list"}} {
		found, _, err := rootCmd.Find(path)
		if assert.NoError(t, err) {
			assert.Equal(t, path[1], found.Name())
		}
	}
}
