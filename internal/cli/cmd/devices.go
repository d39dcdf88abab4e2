package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "管理外部设备凭证",
	Long: `管理出门按钮、车牌识别摄像头等外部设备使用的凭证。

scope 为 exit 的凭证可以调用 GET /gate?mode=exit，
scope 为 snapshot 的凭证可以调用 POST /snapshot。`,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出设备凭证",
	Args:  cobra.NoArgs,
	RunE:  runDevicesList,
}

var devicesIssueCmd = &cobra.Command{
	Use:   "issue <name>",
	Short: "签发设备凭证",
	Long: `签发设备凭证并输出 token。token 只显示这一次。

对已撤销的设备重新签发会生成新的 token。`,
	Args: cobra.ExactArgs(1),
	RunE: runDevicesIssue,
}

var devicesRevokeCmd = &cobra.Command{
	Use:   "revoke <name>",
	Short: "撤销设备凭证",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesRevoke,
}

func init() {
	devicesIssueCmd.Flags().String("scope", "exit", "凭证范围: exit / snapshot")

	devicesCmd.AddCommand(devicesListCmd, devicesIssueCmd, devicesRevokeCmd)
	rootCmd.AddCommand(devicesCmd)
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	creds, err := client.ListDevices(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCOPE\tSTATUS\tEXPIRES\tLAST USED")
	for _, cred := range creds {
		status := "active"
		switch {
		case cred.Revoked:
			status = "revoked"
		case time.Now().After(cred.ExpiresAt):
			status = "expired"
		}
		lastUsed := "never"
		if cred.LastUsedAt != nil {
			lastUsed = cred.LastUsedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			cred.Name, cred.Scope, status, cred.ExpiresAt.Local().Format(time.DateTime), lastUsed)
	}
	return w.Flush()
}

func runDevicesIssue(cmd *cobra.Command, args []string) error {
	scope, _ := cmd.Flags().GetString("scope")

	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	issued, err := client.IssueDevice(ctx, args[0], scope)
	if err != nil {
		return fmt.Errorf("签发失败: %w", err)
	}
	fmt.Printf("✓ 已签发 %s (%s)，有效期至 %s\n",
		issued.Credential.Name, issued.Credential.Scope, issued.Credential.ExpiresAt.Local().Format(time.DateTime))
	fmt.Println(issued.Token)
	return nil
}

func runDevicesRevoke(cmd *cobra.Command, args []string) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := client.RevokeDevice(ctx, args[0]); err != nil {
		return fmt.Errorf("撤销失败: %w", err)
	}
	fmt.Printf("✓ 已撤销 %s\n", args[0])
	return nil
}
