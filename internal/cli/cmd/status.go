package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gate-control/internal/cli/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示当前状态",
	Long: `显示当前登录状态和配置信息。

包括：
- 服务器地址
- 登录用户
- 当前是否允许开门（已登录时向服务器查询）`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Printf("服务器:   %s\n", config.GetServerURL())

	if !config.IsLoggedIn() {
		fmt.Println("登录状态: ✗ 未登录")
		fmt.Println("请运行 'gatectl login' 完成登录")
		return nil
	}
	fmt.Printf("登录状态: ✓ %s\n", config.GetUserID())

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	client, err := newClient(true)
	if err != nil {
		return err
	}
	ready, err := client.Ready(ctx)
	if err != nil {
		return fmt.Errorf("查询服务器失败: %w", err)
	}

	if ready.Valid {
		fmt.Println("开门权限: ✓ 当前可以开门")
	} else {
		fmt.Println("开门权限: ✗ 当前不可开门")
	}
	fmt.Printf("摄像头:   %s\n", strings.Join(ready.CameraList, ", "))
	return nil
}
