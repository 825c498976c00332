package registry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"relay-core/internal/host"
	"relay-core/internal/model"
	"relay-core/internal/store"
	"relay-core/pkg/address"
	"relay-core/pkg/cache"
	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/near"
)

const bundleCacheTTL = 10 * time.Minute

// Deriver 查询签名服务为 path 派生的 secp256k1 公钥
type Deriver interface {
	DerivedPublicKey(ctx context.Context, path string) (near.PublicKey, error)
}

// Transferer 调度一笔原生转账 (bootstrap / 存储押金退款)
type Transferer interface {
	ScheduleTransfer(ctx context.Context, to string, amount near.Token, reason string) error
}

type Options struct {
	Oracle    string     // 唯一允许注册的账户
	Bootstrap near.Token // 新 bundle 外部账户的启动资金
	ByteCost  near.Token // 每字节存储费用
}

// BundleRequest 未提供 SigningKey 时向签名服务查询, 未提供 ExternalAccount 时由公钥推导
type BundleRequest struct {
	SigningKey      *near.PublicKey
	Path            string
	ExternalAccount string
}

// slot 一个 (path, app) 对, 最多绑定一个活跃 session key
type slot struct {
	Path  string
	AppID string
}

func slotKey(s slot) string {
	return strconv.Itoa(len(s.Path)) + ":" + s.Path + s.AppID
}

func publicKeyKey(pk near.PublicKey) string {
	return pk.String()
}

// Registry path -> Bundle, (path, app) -> session key, session key -> KeyUsage
type Registry struct {
	store    *store.Store
	bundles  *store.LookupMap[string, model.Bundle]
	keys     *store.LookupMap[near.PublicKey, model.KeyUsage]
	sessions *store.LookupMap[slot, near.PublicKey]

	opts       Options
	deriver    Deriver
	transferer Transferer
	cache      cache.Cache
}

func New(s *store.Store, opts Options, deriver Deriver, transferer Transferer, c cache.Cache) *Registry {
	return &Registry{
		store:      s,
		bundles:    store.NewLookupMap[string, model.Bundle](s, "b:", store.StringKey),
		keys:       store.NewLookupMap[near.PublicKey, model.KeyUsage](s, "k:", publicKeyKey),
		sessions:   store.NewLookupMap[slot, near.PublicKey](s, "s:", slotKey),
		opts:       opts,
		deriver:    deriver,
		transferer: transferer,
		cache:      c,
	}
}

func (r *Registry) requireOracle(call host.Call) error {
	if call.Caller != r.opts.Oracle {
		return errno.ErrUnauthorized.WithMessage(fmt.Sprintf("%s is not the oracle", call.Caller))
	}
	return nil
}

// RegisterBundle 绑定 path 与目标链钱包, 每个 path 只能注册一次
func (r *Registry) RegisterBundle(ctx context.Context, call host.Call, req BundleRequest) (*model.Bundle, error) {
	if err := r.requireOracle(call); err != nil {
		return nil, err
	}
	if req.Path == "" {
		return nil, errno.ErrBind.WithMessage("path is empty")
	}

	exists, err := r.bundles.ContainsKey(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errno.ErrAlreadyActivated.WithMessage(fmt.Sprintf("path %s already activated", req.Path))
	}

	// 1. 签名公钥
	var key near.PublicKey
	if req.SigningKey != nil {
		key = *req.SigningKey
	} else {
		if r.deriver == nil {
			return nil, errno.ErrBind.WithMessage("signing key is required")
		}
		if key, err = r.deriver.DerivedPublicKey(ctx, req.Path); err != nil {
			return nil, fmt.Errorf("查询派生公钥失败: %w", err)
		}
	}

	// 2. 外部账户
	account := req.ExternalAccount
	if account == "" {
		if account, err = address.EthImplicitAccountFromNearKey(key); err != nil {
			return nil, err
		}
	}
	if err := near.ValidateAccountID(account); err != nil {
		return nil, err
	}

	bundle := model.Bundle{SigningKey: key, Path: req.Path, ExternalAccount: account}
	if _, _, err := r.bundles.Insert(ctx, req.Path, bundle); err != nil {
		return nil, err
	}

	// 3. 存储押金结算并提交
	if err := r.commit(ctx, call); err != nil {
		return nil, err
	}

	monitor.ObserveBundle()
	logger.Info("Bundle 已激活",
		zap.String("path", bundle.Path),
		zap.String("external_account", bundle.ExternalAccount),
		zap.String("signing_key", bundle.SigningKey.String()),
	)

	// 4. 启动资金, 失败不回滚已提交的 bundle
	if !r.opts.Bootstrap.IsZero() && r.transferer != nil {
		if err := r.transferer.ScheduleTransfer(ctx, account, r.opts.Bootstrap, "bootstrap"); err != nil {
			logger.Error("调度启动资金转账失败", zap.String("to", account), zap.Error(err))
		}
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, "bundle:"+bundle.Path, &bundle, bundleCacheTTL)
	}
	return &bundle, nil
}

// Bundle bundle 创建后不可变, 优先读缓存
func (r *Registry) Bundle(ctx context.Context, path string) (*model.Bundle, bool, error) {
	if r.cache != nil {
		var cached model.Bundle
		if err := r.cache.Get(ctx, "bundle:"+path, &cached); err == nil {
			return &cached, true, nil
		}
	}

	bundle, ok, err := r.bundles.Get(ctx, path)
	if err != nil || !ok {
		return nil, false, err
	}
	if r.cache != nil && !r.store.Dirty() {
		_ = r.cache.Set(ctx, "bundle:"+path, &bundle, bundleCacheTTL)
	}
	return &bundle, true, nil
}

// RegisterSessionKey 为 (path, app) 绑定新的 session key
// 同一 slot 已有 key 时为轮换: 旧 key 与新 key 在同一次提交中替换
func (r *Registry) RegisterSessionKey(ctx context.Context, call host.Call, pk near.PublicKey, path, appID string) (*model.KeyUsage, error) {
	if err := r.requireOracle(call); err != nil {
		return nil, err
	}
	if pk.Type != near.ED25519 {
		return nil, errno.ErrInvalidEncoding.WithMessage("session key must be ed25519")
	}
	if path == "" {
		return nil, errno.ErrBind.WithMessage("path is empty")
	}

	exists, err := r.keys.ContainsKey(ctx, pk)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errno.ErrKeyAlreadyExists.WithMessage(fmt.Sprintf("key %s already exists", pk))
	}

	if appID != "" {
		s := slot{Path: path, AppID: appID}
		old, rotated, err := r.sessions.Insert(ctx, s, pk)
		if err != nil {
			return nil, err
		}
		if rotated {
			if _, _, err := r.keys.Remove(ctx, old); err != nil {
				return nil, err
			}
			monitor.ObserveRotation()
			logger.Info("Session key 轮换",
				zap.String("path", path),
				zap.String("app_id", appID),
				zap.String("old_key", old.String()),
				zap.String("new_key", pk.String()),
			)
		}
	}

	usage := model.KeyUsage{UsageStats: model.NewUsageStats(), Path: path, AppID: appID}
	if _, _, err := r.keys.Insert(ctx, pk, usage); err != nil {
		return nil, err
	}

	if err := r.commit(ctx, call); err != nil {
		return nil, err
	}

	logger.Info("Session key 已注册",
		zap.String("path", path),
		zap.String("app_id", appID),
		zap.String("public_key", pk.String()),
	)
	return &usage, nil
}

// SessionKey 当前绑定在 (path, app) 上的 key
func (r *Registry) SessionKey(ctx context.Context, path, appID string) (near.PublicKey, bool, error) {
	return r.sessions.Get(ctx, slot{Path: path, AppID: appID})
}

// Resolve 不存在表示该 key 没有任何授权
func (r *Registry) Resolve(ctx context.Context, pk near.PublicKey) (*model.KeyUsage, bool, error) {
	usage, ok, err := r.keys.Get(ctx, pk)
	if err != nil || !ok {
		return nil, false, err
	}
	return &usage, true, nil
}

// RecordUsage 累加一次成功动作的用量, 随当前请求一起提交
func (r *Registry) RecordUsage(ctx context.Context, pk near.PublicKey, delta model.UsageDelta) error {
	usage, ok, err := r.keys.Get(ctx, pk)
	if err != nil {
		return err
	}
	if !ok {
		return errno.ErrKeyNotRecognized
	}
	if err := usage.UsageStats.Record(delta); err != nil {
		return err
	}
	_, _, err = r.keys.Insert(ctx, pk, usage)
	return err
}

// commit 结算存储押金后提交
// 存储增长时附带金额必须覆盖费用, 否则返回错误且不提交; 多余部分退还调用方
func (r *Registry) commit(ctx context.Context, call host.Call) error {
	delta := r.store.PendingUsage() - r.store.Usage()

	refund := call.Attached
	if delta > 0 {
		cost, err := r.opts.ByteCost.MulUint64(uint64(delta))
		if err != nil {
			return err
		}
		if call.Attached.Cmp(cost) < 0 {
			return errno.ErrInsufficientDeposit.WithMessage(
				fmt.Sprintf("storage grew by %d bytes, requires %s, attached %s", delta, cost, call.Attached))
		}
		if refund, err = call.Attached.Sub(cost); err != nil {
			return err
		}
	} else if delta < 0 {
		freed, err := r.opts.ByteCost.MulUint64(uint64(-delta))
		if err != nil {
			return err
		}
		if refund, err = refund.Add(freed); err != nil {
			return err
		}
	}

	if err := r.store.Flush(ctx); err != nil {
		return err
	}

	logger.Debug("存储押金结算",
		zap.Int64("delta_bytes", delta),
		zap.String("attached", call.Attached.String()),
		zap.String("refund", refund.String()),
	)

	if !refund.IsZero() && r.transferer != nil {
		if err := r.transferer.ScheduleTransfer(ctx, call.Caller, refund, "storage_refund"); err != nil {
			logger.Error("调度押金退款失败", zap.String("to", call.Caller), zap.Error(err))
		}
	}
	return nil
}
