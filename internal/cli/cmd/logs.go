package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "查看访问日志",
	Long: `分页查看访问日志，最新的在前面。

抓拍图片不在列表中显示。`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntP("page", "p", 1, "页码")
	logsCmd.Flags().IntP("size", "n", 0, "每页条数（默认使用服务器配置）")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")

	client, err := newClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := client.ListLogs(ctx, page, size)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tUSER\tMODE\tRESULT\tCAM\tSNAPSHOT")
	for _, entry := range result.Logs {
		user := "-"
		if entry.UserID != nil {
			user = *entry.UserID
		}

		var info struct {
			Mode    string `json:"mode"`
			Success *bool  `json:"success"`
			Reason  string `json:"reason"`
		}
		_ = json.Unmarshal(entry.EventInfo, &info)

		outcome := "-"
		if info.Success != nil {
			outcome = "ok"
			if !*info.Success {
				outcome = "denied"
				if info.Reason != "" {
					outcome += ": " + info.Reason
				}
			}
		}

		snapshot := "no"
		if entry.Snapshot != "" {
			snapshot = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			entry.ID, entry.RegDate, user, info.Mode, outcome, entry.CamNo, snapshot)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n第 %d 页，每页 %d 条，共 %d 条\n", result.Page, result.Offset, result.Total)
	return nil
}
