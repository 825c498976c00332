package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"relay-core/internal/event"
	"relay-core/internal/host"
	"relay-core/internal/model"
	"relay-core/internal/service/auth"
	"relay-core/internal/service/compiler"
	"relay-core/internal/service/ledger"
	"relay-core/internal/service/orchestrator"
	"relay-core/internal/service/registry"
	"relay-core/internal/store"
	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/near"
	"relay-core/pkg/utils/lock"
)

const (
	stateLockKey = "relay:state"
	stateLockTTL = 30 * time.Second
)

// ExecuteRequest session key 签名的 EVM 动作
type ExecuteRequest struct {
	Signature  []byte
	Payload    model.Payload
	SessionKey near.PublicKey
	AppID      string
}

// ExecuteNativeRequest session key 签名的原生 NEAR 动作
type ExecuteNativeRequest struct {
	Signature  []byte
	Payload    model.NativePayload
	SessionKey near.PublicKey
	AppID      string
}

// ExecuteResult 同步阶段的结果, 签名与转发在后台完成
type ExecuteResult struct {
	ActionID string     `json:"action_id"`
	Kind     string     `json:"kind"`
	Digest   string     `json:"digest"` // hex
	Wallet   string     `json:"wallet"`
	Target   string     `json:"target"`
	Debited  near.Token `json:"debited"`
	Balance  near.Token `json:"balance"`
}

type Deps struct {
	Store        *store.Store
	Registry     *registry.Registry
	Ledger       *ledger.Ledger
	Compiler     *compiler.Compiler
	Orchestrator *orchestrator.Orchestrator
	Lock         lock.DistributedLock // 多个进程共享 Backend 时使用, 可为 nil
}

// Service 显式构造的应用上下文
// 每个写操作是一个同步段: 成功则提交, 失败则丢弃该段的全部写入
type Service struct {
	mu       sync.RWMutex
	store    *store.Store
	registry *registry.Registry
	ledger   *ledger.Ledger
	compiler *compiler.Compiler
	orch     *orchestrator.Orchestrator
	lock     lock.DistributedLock
}

func New(d Deps) *Service {
	return &Service{
		store:    d.Store,
		registry: d.Registry,
		ledger:   d.Ledger,
		compiler: d.Compiler,
		orch:     d.Orchestrator,
		lock:     d.Lock,
	}
}

func (s *Service) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		waitCtx, cancel := context.WithTimeout(ctx, stateLockTTL)
		defer cancel()
		if err := lock.AcquireWait(waitCtx, s.lock, stateLockKey, stateLockTTL, 20*time.Millisecond); err != nil {
			return fmt.Errorf("获取状态锁失败: %w", err)
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), stateLockKey); err != nil {
				logger.Warn("释放状态锁失败", zap.Error(err))
			}
		}()
		if err := s.store.Refresh(ctx); err != nil {
			return err
		}
	}

	if err := fn(); err != nil {
		s.store.Rollback()
		return err
	}
	if err := s.store.Flush(ctx); err != nil {
		s.store.Rollback()
		return err
	}
	return nil
}

// Deposit 附带金额记入 app 余额
func (s *Service) Deposit(ctx context.Context, call host.Call, appID string) (near.Token, error) {
	if appID == "" {
		return near.Token{}, errno.ErrBind.WithMessage("app_id is empty")
	}
	var balance near.Token
	err := s.mutate(ctx, func() error {
		var err error
		balance, err = s.ledger.Deposit(ctx, call, appID)
		return err
	})
	if err != nil {
		return near.Token{}, err
	}
	monitor.ObserveDeposit(appID, call.Attached.Float64())
	return balance, nil
}

// RegisterBundle oracle 注册 path 的目标链钱包
func (s *Service) RegisterBundle(ctx context.Context, call host.Call, req registry.BundleRequest) (*model.Bundle, error) {
	var bundle *model.Bundle
	err := s.mutate(ctx, func() error {
		var err error
		bundle, err = s.registry.RegisterBundle(ctx, call, req)
		return err
	})
	return bundle, err
}

// RegisterSessionKey oracle 为 (path, app) 绑定或轮换 session key
func (s *Service) RegisterSessionKey(ctx context.Context, call host.Call, pk near.PublicKey, path, appID string) (*model.KeyUsage, error) {
	var usage *model.KeyUsage
	err := s.mutate(ctx, func() error {
		var err error
		usage, err = s.registry.RegisterSessionKey(ctx, call, pk, path, appID)
		return err
	})
	return usage, err
}

// authorized 认证后的调用方上下文
type authorized struct {
	usage  *model.KeyUsage
	bundle *model.Bundle
	appID  string
}

// authorize 验签 -> 解析 key -> 查找 bundle
func (s *Service) authorize(ctx context.Context, payload any, sig []byte, pk near.PublicKey, appID string) (*authorized, error) {
	if err := auth.Verify(payload, sig, pk); err != nil {
		return nil, err
	}

	usage, ok, err := s.registry.Resolve(ctx, pk)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errno.ErrKeyNotRecognized.WithMessage(fmt.Sprintf("key %s is not active", pk))
	}

	switch {
	case appID == "":
		appID = usage.AppID
	case usage.AppID != "" && usage.AppID != appID:
		return nil, errno.ErrUnauthorized.WithMessage(fmt.Sprintf("key is bound to app %s", usage.AppID))
	}

	bundle, ok, err := s.registry.Bundle(ctx, usage.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errno.ErrBundleNotFound.WithMessage(fmt.Sprintf("path %s has no bundle", usage.Path))
	}
	return &authorized{usage: usage, bundle: bundle, appID: appID}, nil
}

// charge 动作金额非零时扣款 (先并入附带金额); 为零时附带金额直接充值
func (s *Service) charge(ctx context.Context, call host.Call, amount near.Token, appID string) (near.Token, error) {
	if appID == "" {
		if !amount.IsZero() || !call.Attached.IsZero() {
			return near.Token{}, errno.ErrBind.WithMessage("app_id is required for value-carrying actions")
		}
		return near.Token{}, nil
	}
	if amount.IsZero() {
		if call.Attached.IsZero() {
			return s.ledger.BalanceOf(ctx, appID)
		}
		return s.ledger.Deposit(ctx, call, appID)
	}
	return s.ledger.Debit(ctx, call, amount, appID)
}

// Execute 认证 -> 扣款 -> 编译 EVM 交易 -> 记录用量 -> 提交 -> 请求签名
func (s *Service) Execute(ctx context.Context, call host.Call, req ExecuteRequest) (*ExecuteResult, error) {
	var (
		result *ExecuteResult
		job    orchestrator.SignJob
	)
	err := s.mutate(ctx, func() error {
		a, err := s.authorize(ctx, req.Payload, req.Signature, req.SessionKey, req.AppID)
		if err != nil {
			return err
		}

		action := req.Payload.Action
		if err := action.Validate(); err != nil {
			return err
		}
		amount := action.Amount()
		balance, err := s.charge(ctx, call, amount, a.appID)
		if err != nil {
			return err
		}

		build, err := s.compiler.CompileEVM(action, uint64(req.Payload.Nonce))
		if err != nil {
			return err
		}
		unsigned, err := build.Tx.MarshalBinary()
		if err != nil {
			return errno.ErrInvalidEncoding.WithMessage(err.Error())
		}

		if err := s.registry.RecordUsage(ctx, req.SessionKey, usageDelta(call, action)); err != nil {
			return err
		}

		job = orchestrator.SignJob{
			ID:        orchestrator.NewJobID(),
			Kind:      orchestrator.KindEVM,
			Digest:    build.Digest[:],
			Path:      a.bundle.Path,
			Unsigned:  unsigned,
			Wallet:    a.bundle.ExternalAccount,
			Target:    build.Target,
			Deposit:   amount,
			AppID:     a.appID,
			CreatedAt: call.At,
		}
		result = newResult(job, balance)
		return nil
	})
	if err != nil {
		logger.Warn("动作被拒绝", zap.String("session_key", req.SessionKey.String()), zap.Error(err))
		return nil, err
	}

	monitor.ObserveDebit(job.AppID, job.Deposit.Float64())
	return result, s.orch.Begin(ctx, job)
}

// ExecuteNative 原生变体: bundle 账户直接签名, 调用方提供 nonce 和区块哈希
func (s *Service) ExecuteNative(ctx context.Context, call host.Call, req ExecuteNativeRequest) (*ExecuteResult, error) {
	var (
		result *ExecuteResult
		job    orchestrator.SignJob
	)
	err := s.mutate(ctx, func() error {
		a, err := s.authorize(ctx, req.Payload, req.Signature, req.SessionKey, req.AppID)
		if err != nil {
			return err
		}

		action := req.Payload.Action
		if err := action.Validate(); err != nil {
			return err
		}
		amount := action.Amount()
		balance, err := s.charge(ctx, call, amount, a.appID)
		if err != nil {
			return err
		}

		build, err := s.compiler.CompileNative(a.bundle.ExternalAccount, a.bundle.SigningKey, action,
			uint64(req.Payload.Nonce), req.Payload.BlockHash)
		if err != nil {
			return err
		}

		if err := s.registry.RecordUsage(ctx, req.SessionKey, usageDelta(call, action)); err != nil {
			return err
		}

		job = orchestrator.SignJob{
			ID:        orchestrator.NewJobID(),
			Kind:      orchestrator.KindNative,
			Digest:    build.Digest[:],
			Path:      a.bundle.Path,
			Unsigned:  build.Bytes,
			Wallet:    a.bundle.ExternalAccount,
			Target:    build.Target,
			Deposit:   amount,
			AppID:     a.appID,
			CreatedAt: call.At,
		}
		result = newResult(job, balance)
		return nil
	})
	if err != nil {
		logger.Warn("原生动作被拒绝", zap.String("session_key", req.SessionKey.String()), zap.Error(err))
		return nil, err
	}

	monitor.ObserveDebit(job.AppID, job.Deposit.Float64())
	return result, s.orch.Begin(ctx, job)
}

func usageDelta(call host.Call, action model.Action) model.UsageDelta {
	return model.UsageDelta{
		At:       call.At,
		Method:   action.Method(),
		Contract: action.Target(),
		Gas:      action.Gas(),
		Deposit:  action.Amount(),
	}
}

func newResult(job orchestrator.SignJob, balance near.Token) *ExecuteResult {
	return &ExecuteResult{
		ActionID: job.ID,
		Kind:     string(job.Kind),
		Digest:   fmt.Sprintf("%x", job.Digest),
		Wallet:   job.Wallet,
		Target:   job.Target,
		Debited:  job.Deposit,
		Balance:  balance,
	}
}

// KeyUsage 视图
func (s *Service) KeyUsage(ctx context.Context, pk near.PublicKey) (*model.KeyUsage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Resolve(ctx, pk)
}

// Bundle 视图
func (s *Service) Bundle(ctx context.Context, path string) (*model.Bundle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Bundle(ctx, path)
}

// Balance 视图, 不存在时为 0
func (s *Service) Balance(ctx context.Context, appID string) (near.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.BalanceOf(ctx, appID)
}

// ActionStatus 签名流程的最近状态
func (s *Service) ActionStatus(ctx context.Context, id string) (*event.ActionEvent, bool) {
	return s.orch.Status(ctx, id)
}

// StorageUsage 重新读取已提交的存储用量 (字节)
func (s *Service) StorageUsage(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Refresh(ctx); err != nil {
		return 0, err
	}
	return s.store.Usage(), nil
}
