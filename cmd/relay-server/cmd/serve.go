package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relay-core/internal/handler"
	"relay-core/internal/server"
	"relay-core/internal/service/cron"
	"relay-core/internal/worker"
	"relay-core/pkg/config"
	"relay-core/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Global
		ctx := context.Background()

		// 1. 外部连接
		d, err := newDeps(ctx, cfg)
		if err != nil {
			logger.Fatal("初始化依赖失败", zap.Error(err))
		}

		// 2. relay 服务
		svc, wait, err := d.newRelay(ctx)
		if err != nil {
			d.Close()
			logger.Fatal("初始化 relay 服务失败", zap.Error(err))
		}

		// 3. HTTP Router
		r := server.NewHTTPRouter(server.RouterConfig{
			OracleAccount: cfg.Relay.OracleAccount,
			OracleToken:   cfg.Relay.OracleToken,
			Swagger:       cfg.App.Swagger,
		}, handler.NewRelayHandler(svc))

		// 4. 内嵌 worker
		app := server.New(server.Config{HttpPort: cfg.App.HttpPort}, r)
		if withWorker, _ := cmd.Flags().GetBool("with-worker"); withWorker && !cfg.Worker.Inline {
			srv := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Worker.Concurrency, d.orch, d.relayer)
			srv.Start()
			app.OnShutdown(func(context.Context) { srv.Stop() })
		}

		// 5. 定时任务
		jobs := cron.New(svc, d.locker())
		jobs.Start()
		app.OnShutdown(func(context.Context) { jobs.Stop() })

		// 6. 启动 (阻塞)
		app.OnShutdown(func(context.Context) {
			logger.Info("等待进程内任务结束...")
			wait()
			logger.Info("正在关闭外部连接...")
			d.Close()
		})
		app.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("with-worker", false, "在同一进程内启动 asynq worker")
}
