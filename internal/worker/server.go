package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"relay-core/internal/worker/tasks"
	"relay-core/pkg/logger"
)

// Server 封装 Asynq Server
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer 注册签名和转账任务处理器
func NewServer(addr string, password string, db int, concurrency int, processor tasks.Processor, transferer tasks.Transferer) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6, // 签名
				"default":  3, // 转账
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeSignTx, tasks.NewSignHandler(processor))
	mux.Handle(tasks.TypeTransfer, tasks.NewTransferHandler(transferer))

	return &Server{server: srv, mux: mux}
}

// Run 阻塞运行
func (s *Server) Run() error {
	logger.Info("Worker Server starting...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动, serve 命令内嵌 worker 时使用
func (s *Server) Start() {
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("Worker Server failed", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
