// gatectl 门禁控制命令行工具
package main

import "gate-control/internal/cli/cmd"

func main() {
	cmd.Execute()
}
