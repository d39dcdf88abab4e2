// Package cmd 实现 gatectl 命令
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gate-control/internal/cli/api"
	"gate-control/internal/cli/config"
)

var rootCmd = &cobra.Command{
	Use:   "gatectl",
	Short: "gatectl - 门禁控制命令行工具",
	Long: `gatectl 门禁控制命令行客户端

登录后可以远程开门、查看摄像头画面、管理用户和设备凭证，
以及实时查看访问事件。

首次使用请运行 'gatectl login'。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login [user_id]",
	Short: "登录并保存 API Key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

// errNotLoggedIn 需要登录的命令在未登录时返回
var errNotLoggedIn = errors.New("尚未登录，请先运行 'gatectl login'")

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	rootCmd.PersistentFlags().StringP("server", "s", "", "服务器地址 (默认: "+config.DefaultServerURL+")")

	rootCmd.AddCommand(loginCmd)
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化配置失败: %v\n", err)
		os.Exit(1)
	}

	// 如果指定了服务器地址，覆盖配置
	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		config.SetServerURL(server)
	}
}

// newClient 使用已保存的凭证创建 API 客户端
func newClient(requireLogin bool) (*api.Client, error) {
	if requireLogin && !config.IsLoggedIn() {
		return nil, errNotLoggedIn
	}
	return api.NewClient(config.GetServerURL(), config.GetAPIKey()), nil
}

// commandContext 返回随 Ctrl+C 取消的上下文
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	if config.IsLoggedIn() {
		fmt.Printf("当前已登录为 %s\n", config.GetUserID())
		if !askYesNo(reader, "是否重新登录？") {
			return nil
		}
	}

	userID := ""
	if len(args) == 1 {
		userID = strings.TrimSpace(args[0])
	} else {
		fmt.Print("请输入用户标识: ")
		line, _ := reader.ReadString('\n')
		userID = strings.TrimSpace(line)
	}
	if userID == "" {
		return errors.New("用户标识不能为空")
	}

	// 输入密码（隐藏输入）
	fmt.Print("请输入密码: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("读取密码失败: %w", err)
	}
	password := string(passwordBytes)
	if password == "" {
		return errors.New("密码不能为空")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client, _ := newClient(false)
	result, err := client.Login(ctx, userID, password)
	if err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}

	if err := config.SaveAuth(result.UserID, result.APIKey); err != nil {
		return err
	}
	fmt.Printf("✓ 登录成功: %s\n", result.UserID)
	return nil
}

// askYesNo 询问用户是/否，默认为否
func askYesNo(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
