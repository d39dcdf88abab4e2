package cmd

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gate-control/internal/cli/api"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "管理门禁用户",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部用户",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <user_id>",
	Short: "创建用户",
	Long: `创建门禁用户并输出其 API Key。

日期格式为 YYYY-MM-DD，不指定时不限制；
小时范围 --hour-from/--hour-to 都为 0 时全天可用。`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersCreate,
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <user_id>",
	Short: "删除用户",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove,
}

func init() {
	f := usersCreateCmd.Flags()
	f.String("name", "", "显示名称")
	f.StringSlice("plate", nil, "车牌号，可重复指定")
	f.String("date-from", "", "起始日期")
	f.String("date-to", "", "截止日期")
	f.Int("hour-from", 0, "每日起始小时")
	f.Int("hour-to", 0, "每日截止小时（不含）")
	f.Bool("disabled", false, "创建为禁用状态")
	f.String("password", "", "登录密码（用于 gatectl login）")

	usersRemoveCmd.Flags().BoolP("yes", "y", false, "跳过确认")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersRemoveCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER_ID\tNAME\tDATES\tHOURS\tENABLED\tAPI_KEY")
	for _, u := range users {
		name := ""
		if u.Name != nil {
			name = *u.Name
		}
		key := u.APIKey
		if u.APIKeyDrifted {
			key += " (stale)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s ~ %s\t%02d-%02d\t%t\t%s\n",
			u.ID, u.UserID, name, u.DateFrom, u.DateTo, u.HourFrom, u.HourTo, u.Flag, key)
	}
	return w.Flush()
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	in := &api.UserInput{UserID: &args[0]}
	f := cmd.Flags()

	stringFlag := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		s, _ := f.GetString(name)
		return &s
	}
	intFlag := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		n, _ := f.GetInt(name)
		return &n
	}

	in.Name = stringFlag("name")
	in.DateFrom = stringFlag("date-from")
	in.DateTo = stringFlag("date-to")
	in.HourFrom = intFlag("hour-from")
	in.HourTo = intFlag("hour-to")
	in.Password = stringFlag("password")
	in.Plates, _ = f.GetStringSlice("plate")
	if disabled, _ := f.GetBool("disabled"); disabled {
		enabled := false
		in.Flag = &enabled
	}

	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	user, err := client.CreateUser(ctx, in)
	if err != nil {
		return fmt.Errorf("创建用户失败: %w", err)
	}
	fmt.Printf("✓ 已创建用户 %s\n", user.UserID)
	fmt.Printf("  API Key: %s\n", user.APIKey)
	return nil
}

func runUsersRemove(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if !askYesNo(bufio.NewReader(os.Stdin), fmt.Sprintf("确认删除用户 %s？", args[0])) {
			return nil
		}
	}

	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := client.RemoveUser(ctx, args[0]); err != nil {
		return fmt.Errorf("删除用户失败: %w", err)
	}
	fmt.Printf("✓ 已删除用户 %s\n", args[0])
	return nil
}
