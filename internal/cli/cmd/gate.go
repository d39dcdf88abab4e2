package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "远程开门",
	Args:  cobra.NoArgs,
	RunE:  runOpen,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "保存摄像头当前画面",
	Long: `获取摄像头当前画面并保存为 JPEG 文件。

不指定 -c 时使用服务器的默认摄像头。`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringP("camera", "c", "", "摄像头名称")
	snapshotCmd.Flags().StringP("output", "o", "snapshot.jpg", "输出文件")

	rootCmd.AddCommand(openCmd, snapshotCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := client.Open(ctx)
	if err != nil {
		return fmt.Errorf("开门失败: %w", err)
	}
	fmt.Printf("✓ %s\n", result.Message)
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	camera, _ := cmd.Flags().GetString("camera")
	output, _ := cmd.Flags().GetString("output")

	client, err := newClient(true)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := client.Snapshot(ctx, camera)
	if err != nil {
		return fmt.Errorf("获取画面失败: %w", err)
	}
	image, err := result.Image()
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, image, 0644); err != nil {
		return fmt.Errorf("保存文件失败: %w", err)
	}
	fmt.Printf("✓ %s 的画面已保存到 %s (%d 字节)\n", result.CamName, output, len(image))
	return nil
}
