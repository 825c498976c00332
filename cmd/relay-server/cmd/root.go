package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relay-core/pkg/config"
	"relay-core/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "relay-server",
	Short: "委托签名中继服务",
	Long: `relay-server 维护 session key 注册表和 App 余额,
把用户签名的动作编译成交易, 交给门限签名网络签名后中继上链。

  serve   启动 HTTP API
  worker  启动 asynq 签名/转账 worker
  audit   消费签名流程事件并记录`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 0. 配置与日志
		config.Init()
		logger.Init(config.Global.App.Env)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
