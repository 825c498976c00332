package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relay-core/internal/worker"
	"relay-core/pkg/config"
	"relay-core/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "启动 asynq worker, 执行签名回调和原生转账",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Global
		if cfg.Worker.Inline {
			logger.Fatal("worker.inline=true 时签名任务在 API 进程内执行, 无需启动 worker")
		}

		d, err := newDeps(context.Background(), cfg)
		if err != nil {
			logger.Fatal("初始化依赖失败", zap.Error(err))
		}
		defer d.Close()

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Worker.Concurrency
		}

		srv := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, concurrency, d.orch, d.relayer)
		logger.Info("worker 启动", zap.Int("concurrency", concurrency))
		// Run 阻塞直到收到退出信号
		if err := srv.Run(); err != nil {
			logger.Error("worker 退出", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntP("concurrency", "c", 0, "并发数, 默认取 worker.concurrency")
}
