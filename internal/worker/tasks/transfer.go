package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

// TransferPayload relay 账户发出的原生转账
type TransferPayload struct {
	To     string     `json:"to"`
	Amount near.Token `json:"amount"`
	Reason string     `json:"reason"` // bootstrap / storage_refund
}

func NewTransferTask(p TransferPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTransfer, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
	), nil
}

// Transferer 实际发出转账
type Transferer interface {
	Transfer(ctx context.Context, to string, amount near.Token) (string, error)
}

type TransferHandler struct {
	transferer Transferer
}

func NewTransferHandler(t Transferer) *TransferHandler {
	return &TransferHandler{transferer: t}
}

func (h *TransferHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p TransferPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.Amount.IsZero() {
		return nil
	}

	hash, err := h.transferer.Transfer(ctx, p.To, p.Amount)
	if err != nil {
		logger.Error("转账失败",
			zap.String("to", p.To),
			zap.String("amount", p.Amount.String()),
			zap.String("reason", p.Reason),
			zap.Error(err),
		)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger.Info("转账成功", zap.String("to", p.To), zap.String("reason", p.Reason), zap.String("tx_hash", hash))
	return nil
}
