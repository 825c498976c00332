package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"relay-core/internal/service/orchestrator"
	"relay-core/internal/worker/tasks"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

// InlineScheduler 不经过队列, 在进程内执行签名和转账
// async=true 时每个任务一个 goroutine, 请求不等待签名完成
type InlineScheduler struct {
	processor  tasks.Processor
	transferer tasks.Transferer
	async      bool
	wg         sync.WaitGroup
}

func NewInlineScheduler(p tasks.Processor, t tasks.Transferer, async bool) *InlineScheduler {
	return &InlineScheduler{processor: p, transferer: t, async: async}
}

func (s *InlineScheduler) ScheduleSign(ctx context.Context, job orchestrator.SignJob) error {
	s.run(ctx, func(ctx context.Context) {
		// 失败已由 orchestrator 记录
		_ = s.processor.Process(ctx, job)
	})
	return nil
}

func (s *InlineScheduler) ScheduleTransfer(ctx context.Context, to string, amount near.Token, reason string) error {
	if s.transferer == nil || amount.IsZero() {
		return nil
	}
	s.run(ctx, func(ctx context.Context) {
		if _, err := s.transferer.Transfer(ctx, to, amount); err != nil {
			logger.Error("转账失败", zap.String("to", to), zap.String("reason", reason), zap.Error(err))
		}
	})
	return nil
}

func (s *InlineScheduler) run(ctx context.Context, fn func(ctx context.Context)) {
	if !s.async {
		fn(ctx)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// 请求结束后任务继续执行
		fn(context.WithoutCancel(ctx))
	}()
}

// Wait 等待所有异步任务结束
func (s *InlineScheduler) Wait() {
	s.wg.Wait()
}
