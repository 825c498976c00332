package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relay-core/internal/event"
	"relay-core/internal/service/mq"
	"relay-core/pkg/config"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "消费签名流程事件, 记录失败但已扣款的动作",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Global
		name, _ := cmd.Flags().GetString("name")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, err := newDeps(ctx, cfg)
		if err != nil {
			logger.Fatal("初始化依赖失败", zap.Error(err))
		}
		defer d.Close()

		consumer, err := d.newConsumer(name)
		if err != nil {
			logger.Fatal("初始化消费者失败", zap.Error(err))
		}
		defer consumer.Close()

		logger.Info("开始消费事件", zap.String("topic", event.TopicRelay), zap.String("consumer", name))
		if err := consumer.Subscribe(ctx, event.TopicRelay, auditEvent); err != nil && ctx.Err() == nil {
			logger.Error("消费中断", zap.Error(err))
		}
	},
}

// auditEvent 无法解析的消息直接确认, 避免反复投递
func auditEvent(msg *mq.Message) error {
	var ev event.ActionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		logger.Error("事件格式错误", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}

	fields := []zap.Field{
		zap.String("action_id", ev.ActionID),
		zap.String("kind", ev.Kind),
		zap.String("status", string(ev.Status)),
		zap.String("app_id", ev.AppID),
		zap.String("path", ev.Path),
		zap.String("target", ev.Target),
	}
	switch ev.Status {
	case event.StatusFailed:
		debited, err := near.ParseToken(ev.Debited)
		if err == nil && !debited.IsZero() {
			logger.Warn("动作失败, 扣款未退还", append(fields, zap.String("debited", ev.Debited), zap.String("reason", ev.Reason))...)
			return nil
		}
		logger.Info("动作失败", append(fields, zap.String("reason", ev.Reason))...)
	case event.StatusRelayed:
		logger.Info("动作已上链", append(fields, zap.String("tx_hash", ev.TxHash))...)
	default:
		logger.Debug("状态迁移", fields...)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().String("name", "audit-0", "消费者名称 (Redis Streams)")
}
