package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"relay-core/internal/service/orchestrator"
	"relay-core/pkg/logger"
)

// 任务类型常量
const (
	TypeSignTx   = "relay:sign"
	TypeTransfer = "relay:transfer"
)

// 签名请求没有自动重试: 失败需要调用方重新提交新的动作
const signTimeout = 2 * time.Minute

// NewSignTask task id 即 action id, 重复入队会被 asynq 拒绝
func NewSignTask(job orchestrator.SignJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSignTx, payload,
		asynq.TaskID(job.ID),
		asynq.MaxRetry(0),
		asynq.Queue("critical"),
		asynq.Timeout(signTimeout),
	), nil
}

// Processor 签名任务的执行方
type Processor interface {
	Process(ctx context.Context, job orchestrator.SignJob) error
}

// SignHandler 消费 relay:sign
type SignHandler struct {
	processor Processor
}

func NewSignHandler(p Processor) *SignHandler {
	return &SignHandler{processor: p}
}

func (h *SignHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var job orchestrator.SignJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("开始处理签名任务",
		zap.String("action_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("path", job.Path),
	)
	if err := h.processor.Process(ctx, job); err != nil {
		// 失败已通过事件记录, 任务直接归档
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}
