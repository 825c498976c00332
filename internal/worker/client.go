package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"relay-core/internal/service/orchestrator"
	"relay-core/internal/worker/tasks"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 把签名和转账推入 asynq 队列
// 实现 orchestrator.Scheduler 和 registry.Transferer
type Client struct {
	client enqueuer
}

func NewClient(addr string, password string, db int) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Client) ScheduleSign(ctx context.Context, job orchestrator.SignJob) error {
	task, err := tasks.NewSignTask(job)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("签名任务入队失败: %w", err)
	}
	logger.Debug("签名任务已入队", zap.String("action_id", job.ID), zap.String("queue", info.Queue))
	return nil
}

func (c *Client) ScheduleTransfer(ctx context.Context, to string, amount near.Token, reason string) error {
	task, err := tasks.NewTransferTask(tasks.TransferPayload{To: to, Amount: amount, Reason: reason})
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("转账任务入队失败: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
