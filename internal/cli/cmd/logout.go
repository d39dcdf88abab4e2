package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gate-control/internal/cli/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "登出并清除本地凭证",
	Long: `清除本地保存的 API Key。

登出后需要重新运行 'gatectl login' 才能使用。`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if !config.IsLoggedIn() {
		fmt.Println("当前未登录")
		return nil
	}

	if err := config.ClearAuth(); err != nil {
		return fmt.Errorf("清除凭证失败: %w", err)
	}

	fmt.Println("✓ 已登出并清除本地凭证")
	return nil
}
