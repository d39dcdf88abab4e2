package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gate-control/internal/cli/config"
	"gate-control/internal/cli/websocket"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "实时查看访问事件",
	Long: `连接服务器的事件推送，每次开门尝试打印一行。

按 Ctrl+C 退出。`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !config.IsLoggedIn() {
		return errNotLoggedIn
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	client := websocket.NewClient(config.GetServerURL(), config.GetAPIKey())
	client.OnMessage(printEvent)
	return client.Run(ctx)
}

// printEvent 打印一条推送消息
func printEvent(msg *websocket.Message) {
	switch msg.Type {
	case websocket.TypeConnected:
		fmt.Println("✓ 已连接，等待事件... (Ctrl+C 退出)")

	case websocket.TypeAccessEvent:
		var event websocket.AccessEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return
		}
		fmt.Println(formatEvent(&event))

	case websocket.TypeError:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(msg.Payload, &payload)
		fmt.Printf("✗ 服务器错误: %s\n", payload.Message)
	}
}

// formatEvent 把访问事件格式化为一行文本
func formatEvent(event *websocket.AccessEvent) string {
	user := "-"
	if event.UserID != nil {
		user = *event.UserID
	}
	result := "✓"
	if !event.Success {
		result = "✗ " + event.Reason
	}
	return fmt.Sprintf("%s  #%-6d %-8s %-16s %s",
		event.Timestamp.Local().Format("2006-01-02 15:04:05"), event.LogID, event.Mode, user, result)
}
