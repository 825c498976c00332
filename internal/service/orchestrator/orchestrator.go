package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"relay-core/internal/event"
	"relay-core/internal/service/compiler"
	"relay-core/internal/service/mq"
	"relay-core/pkg/cache"
	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/mpc"
	"relay-core/pkg/near"
)

const statusTTL = 24 * time.Hour

// Signer 门限签名服务
type Signer interface {
	Sign(ctx context.Context, req mpc.SignRequest) (*mpc.SignResult, error)
}

// Relayer 把签好的交易送上链
type Relayer interface {
	Execute(ctx context.Context, wallet, target, txB64 string, deposit near.Token) (string, error)
	Broadcast(ctx context.Context, signedB64 string) (string, error)
}

// Scheduler 把 SignJob 交给异步执行方 (asynq / 进程内)
type Scheduler interface {
	ScheduleSign(ctx context.Context, job SignJob) error
}

// Orchestrator Built -> AwaitingSignature -> Relayed | Failed
type Orchestrator struct {
	compiler  *compiler.Compiler
	signer    Signer
	relayer   Relayer
	scheduler Scheduler
	producer  mq.Producer
	status    cache.Cache
}

func New(c *compiler.Compiler, signer Signer, relayer Relayer, producer mq.Producer, status cache.Cache) *Orchestrator {
	return &Orchestrator{
		compiler: c,
		signer:   signer,
		relayer:  relayer,
		producer: producer,
		status:   status,
	}
}

// UseScheduler 调度器通常需要回调 Process, 因此在构造之后设置
func (o *Orchestrator) UseScheduler(s Scheduler) {
	o.scheduler = s
}

// Begin 进入 AwaitingSignature 并调度签名任务
// 调用前扣款已经提交, 这里失败不会退款
func (o *Orchestrator) Begin(ctx context.Context, job SignJob) error {
	if _, err := job.digest(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = NewJobID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if o.scheduler == nil {
		return o.fail(ctx, job, errno.ErrSigningFailed.WithMessage("no scheduler configured"))
	}

	o.emit(ctx, job, event.StatusBuilt, "", "")
	o.emit(ctx, job, event.StatusAwaitingSignature, "", "")

	if err := o.scheduler.ScheduleSign(ctx, job); err != nil {
		return o.fail(ctx, job, errno.ErrSigningFailed.WithMessage(fmt.Sprintf("schedule: %v", err)))
	}
	return nil
}

// Process 签名任务的执行体: 请求签名, 然后进入回调
func (o *Orchestrator) Process(ctx context.Context, job SignJob) error {
	digest, err := job.digest()
	if err != nil {
		return o.fail(ctx, job, err)
	}

	start := time.Now()
	res, signErr := o.signer.Sign(ctx, mpc.SignRequest{Payload: digest, Path: job.Path})
	monitor.ObserveSignature(string(job.Kind), time.Since(start))

	return o.Resume(ctx, job, res, signErr)
}

// Resume 回调: 仅依赖 job 和签名结果
func (o *Orchestrator) Resume(ctx context.Context, job SignJob, res *mpc.SignResult, signErr error) error {
	if signErr != nil {
		if !errors.Is(signErr, errno.ErrSigningFailed) {
			signErr = errno.ErrSigningFailed.WithMessage(signErr.Error())
		}
		return o.fail(ctx, job, signErr)
	}

	r, s, v, err := DecodeSignature(res)
	if err != nil {
		return o.fail(ctx, job, err)
	}

	var txHash string
	switch job.Kind {
	case KindEVM:
		signed, err := o.compiler.AttachEVMSignature(job.Unsigned, r, s, v)
		if err != nil {
			return o.fail(ctx, job, err)
		}
		txHash, err = o.relayer.Execute(ctx, job.Wallet, job.Target, base64.StdEncoding.EncodeToString(signed), job.Deposit)
		if err != nil {
			return o.fail(ctx, job, err)
		}
	case KindNative:
		signed, err := compiler.AttachNativeSignature(job.Unsigned, r, s, v)
		if err != nil {
			return o.fail(ctx, job, err)
		}
		txHash, err = o.relayer.Broadcast(ctx, base64.StdEncoding.EncodeToString(signed))
		if err != nil {
			return o.fail(ctx, job, err)
		}
	default:
		return o.fail(ctx, job, errno.ErrInvalidEncoding.WithMessage("unknown job kind "+string(job.Kind)))
	}

	logger.Info("交易已转发",
		zap.String("action_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("wallet", job.Wallet),
		zap.String("target", job.Target),
		zap.String("tx_hash", txHash),
	)
	o.emit(ctx, job, event.StatusRelayed, "", txHash)
	return nil
}

// DecodeSignature big_r 为 33 字节压缩点, 去掉前缀得到 r; s 为 32 字节; v 取 recovery_id
func DecodeSignature(res *mpc.SignResult) (r, s []byte, v byte, err error) {
	if res == nil {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage("empty response")
	}
	bigR, err := hex.DecodeString(strings.TrimPrefix(res.BigR.AffinePoint, "0x"))
	if err != nil {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage("big_r is not hex")
	}
	if len(bigR) != 33 {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage(fmt.Sprintf("big_r must be 33 bytes, got %d", len(bigR)))
	}
	r = bigR[1:]
	if len(r) != 32 {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage(fmt.Sprintf("r must be 32 bytes, got %d", len(r)))
	}

	s, err = hex.DecodeString(strings.TrimPrefix(res.S.Scalar, "0x"))
	if err != nil {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage("s is not hex")
	}
	if len(s) != 32 {
		return nil, nil, 0, errno.ErrMalformedSignature.WithMessage(fmt.Sprintf("s must be 32 bytes, got %d", len(s)))
	}
	return r, s, res.RecoveryID, nil
}

// Status 最近一次状态迁移
func (o *Orchestrator) Status(ctx context.Context, id string) (*event.ActionEvent, bool) {
	if o.status == nil {
		return nil, false
	}
	var ev event.ActionEvent
	if err := o.status.Get(ctx, "action:"+id, &ev); err != nil {
		return nil, false
	}
	return &ev, true
}

// fail 已扣款的金额不退还, 通过日志和事件暴露
func (o *Orchestrator) fail(ctx context.Context, job SignJob, cause error) error {
	code, _ := errno.Decode(cause)
	reason := fmt.Sprintf("%d", code)

	logger.Error("签名流程失败",
		zap.String("action_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("app_id", job.AppID),
		zap.String("debited", job.Deposit.String()),
		zap.Error(cause),
	)
	monitor.ObserveRelayFailure(reason)
	o.emit(ctx, job, event.StatusFailed, cause.Error(), "")
	return cause
}

func (o *Orchestrator) emit(ctx context.Context, job SignJob, status event.Status, reason, txHash string) {
	ev := event.ActionEvent{
		ActionID: job.ID,
		Kind:     string(job.Kind),
		Status:   status,
		AppID:    job.AppID,
		Path:     job.Path,
		Wallet:   job.Wallet,
		Target:   job.Target,
		Debited:  job.Deposit.String(),
		Reason:   reason,
		TxHash:   txHash,
		At:       time.Now(),
	}
	monitor.ObserveAction(ev.Kind, string(status))

	if o.status != nil {
		if err := o.status.Set(ctx, "action:"+job.ID, &ev, statusTTL); err != nil {
			logger.Warn("记录动作状态失败", zap.String("action_id", job.ID), zap.Error(err))
		}
	}
	if o.producer != nil {
		if err := mq.PublishJSON(ctx, o.producer, event.TopicRelay, job.ID, ev); err != nil {
			logger.Warn("发布动作事件失败", zap.String("action_id", job.ID), zap.Error(err))
		}
	}
}
