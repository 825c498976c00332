package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"relay-core/internal/service/compiler"
	"relay-core/internal/service/ledger"
	"relay-core/internal/service/mq"
	"relay-core/internal/service/orchestrator"
	"relay-core/internal/service/registry"
	"relay-core/internal/service/relay"
	"relay-core/internal/service/relayer"
	"relay-core/internal/service/signer"
	"relay-core/internal/store"
	"relay-core/internal/worker"
	"relay-core/pkg/cache"
	"relay-core/pkg/config"
	"relay-core/pkg/database"
	"relay-core/pkg/keystore"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
	"relay-core/pkg/utils/lock"
)

const streamMaxLen = 100000

// deps 进程内共享的外部连接和服务
type deps struct {
	cfg config.Config

	rdb *redis.Client
	db  *gorm.DB

	signer   signer.Signer
	relayer  *relayer.Client
	compiler *compiler.Compiler
	producer mq.Producer
	status   cache.Cache
	bundles  cache.Cache
	orch     *orchestrator.Orchestrator

	closers []func()
}

func (d *deps) onClose(fn func()) {
	d.closers = append(d.closers, fn)
}

// Close 按创建的逆序释放
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// locker 只有连接了 redis 时才在实例之间互斥
func (d *deps) locker() lock.DistributedLock {
	if d.rdb == nil {
		return nil
	}
	return lock.NewRedisLock(d.rdb)
}

func needRedis(cfg config.Config) bool {
	return cfg.Store.Backend == "redis" || cfg.Redis.MQType == "redis" || !cfg.Worker.Inline
}

// newDeps 连接 redis/postgres, 构造签名客户端, relayer 和 orchestrator
func newDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	// 1. Redis
	if needRedis(cfg) {
		rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		d.rdb = rdb
		d.onClose(func() { _ = rdb.Close() })
	}

	// 2. Postgres
	if cfg.Store.Backend == "postgres" {
		db, err := database.ConnectPostgres(cfg.DB.PostgresDSN(), cfg.App.Env == "development")
		if err != nil {
			return nil, err
		}
		d.db = db
		d.onClose(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}

	// 3. 签名服务
	s, err := newSigner(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.signer = s
	if rc, isRPC := s.(*signer.RPCClient); isRPC {
		d.onClose(rc.Close)
	}

	// 4. relayer
	rl, err := relayer.Dial(ctx, cfg.Relay.RelayerURL)
	if err != nil {
		return nil, err
	}
	d.relayer = rl
	d.onClose(rl.Close)

	// 5. 编译器
	d.compiler, err = compiler.New(cfg.Relay.EvmChainID)
	if err != nil {
		return nil, err
	}

	// 6. 事件
	d.producer = d.newProducer()
	d.onClose(func() { _ = d.producer.Close() })

	// 7. 缓存
	d.status, d.bundles = newCaches(d.rdb)

	d.orch = orchestrator.New(d.compiler, d.signer, d.relayer, d.producer, d.status)
	ok = true
	return d, nil
}

// newCaches 动作状态会被 worker 进程改写, 有 redis 时只读写 redis;
// bundle 注册后不再变化, 可以加一层进程内缓存
func newCaches(rdb *redis.Client) (status, bundles cache.Cache) {
	local := cache.NewMemoryCache(10*time.Minute, 20*time.Minute)
	if rdb == nil {
		return local, local
	}
	remote := cache.NewRedisCache(rdb, "relay:")
	return remote, cache.NewMultiLevelCache(local, remote)
}

func newSigner(ctx context.Context, cfg config.Config) (signer.Signer, error) {
	switch cfg.Signer.Mode {
	case "local":
		mnemonic := cfg.Signer.Mnemonic
		if cfg.Signer.Keystore != "" {
			k, err := keystore.LoadFromFile(cfg.Signer.Keystore)
			if err != nil {
				return nil, err
			}
			if k.Kind != keystore.KindMnemonic {
				return nil, fmt.Errorf("keystore %s 不是助记词 (kind=%s)", cfg.Signer.Keystore, k.Kind)
			}
			secret, err := keystore.Decrypt(k, cfg.Signer.KeystorePassword)
			if err != nil {
				return nil, fmt.Errorf("解密 keystore 失败: %w", err)
			}
			mnemonic = string(secret)
		}
		logger.Warn("使用本地签名器, 仅限开发环境")
		return signer.NewLocalSigner(mnemonic, cfg.App.AccountID)
	case "rpc", "":
		deposit, err := near.ParseNear(cfg.Relay.SignerDeposit)
		if err != nil {
			return nil, fmt.Errorf("relay.signer_deposit: %w", err)
		}
		return signer.Dial(ctx, cfg.Relay.SignerURL, cfg.App.AccountID, deposit)
	default:
		return nil, fmt.Errorf("未知的 signer.mode: %s", cfg.Signer.Mode)
	}
}

func (d *deps) newProducer() mq.Producer {
	switch d.cfg.Redis.MQType {
	case "kafka":
		logger.Info("使用 Kafka 作为消息队列...")
		return mq.NewKafkaProducer(d.cfg.Kafka.Brokers)
	case "redis":
		logger.Info("使用 Redis Streams 作为消息队列...")
		return mq.NewRedisProducer(d.rdb, streamMaxLen)
	default:
		logger.Info("使用内存消息队列...")
		return mq.NewMemoryBroker()
	}
}

func (d *deps) newConsumer(name string) (mq.Consumer, error) {
	switch d.cfg.Redis.MQType {
	case "kafka":
		return mq.NewKafkaConsumer(d.cfg.Kafka.Brokers, d.cfg.Kafka.GroupID), nil
	case "redis":
		return mq.NewRedisConsumer(d.rdb, d.cfg.Kafka.GroupID, name), nil
	default:
		return nil, fmt.Errorf("mq_type=%s 不支持跨进程消费", d.cfg.Redis.MQType)
	}
}

func (d *deps) newBackend() (store.Backend, error) {
	switch d.cfg.Store.Backend {
	case "redis":
		return store.NewRedisBackend(d.rdb), nil
	case "postgres":
		return store.NewPostgresBackend(d.db), nil
	case "memory":
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("未知的 store.backend: %s", d.cfg.Store.Backend)
	}
}

// scheduler 签名任务和原生转账的调度方
type scheduler interface {
	orchestrator.Scheduler
	registry.Transferer
}

// newRelay 组装 API 进程使用的 relay 服务
// 返回的 wait 在关闭时等待进程内任务结束
func (d *deps) newRelay(ctx context.Context) (svc *relay.Service, wait func(), err error) {
	backend, err := d.newBackend()
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(ctx, backend)
	if err != nil {
		return nil, nil, err
	}

	var sched scheduler
	wait = func() {}
	if d.cfg.Worker.Inline {
		inline := worker.NewInlineScheduler(d.orch, d.relayer, true)
		sched, wait = inline, inline.Wait
		logger.Info("签名任务在进程内执行")
	} else {
		client := worker.NewClient(d.cfg.Redis.Addr, d.cfg.Redis.Password, d.cfg.Redis.DB)
		sched = client
		d.onClose(func() { _ = client.Close() })
	}
	d.orch.UseScheduler(sched)

	byteCost, err := near.ParseToken(d.cfg.Store.ByteCost)
	if err != nil {
		return nil, nil, fmt.Errorf("store.byte_cost: %w", err)
	}
	bootstrap, err := near.ParseNear(d.cfg.Relay.BootstrapAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("relay.bootstrap_amount: %w", err)
	}

	reg := registry.New(s, registry.Options{
		Oracle:    d.cfg.Relay.OracleAccount,
		Bootstrap: bootstrap,
		ByteCost:  byteCost,
	}, d.signer, sched, d.bundles)

	var dl lock.DistributedLock
	if d.cfg.Store.DistributedLock && d.cfg.Store.Backend != "memory" && d.rdb != nil {
		dl = lock.NewRedisLock(d.rdb)
		logger.Info("启用分布式状态锁")
	}

	svc = relay.New(relay.Deps{
		Store:        s,
		Registry:     reg,
		Ledger:       ledger.New(s),
		Compiler:     d.compiler,
		Orchestrator: d.orch,
		Lock:         dl,
	})
	logger.Info("relay 服务就绪",
		zap.String("store", d.cfg.Store.Backend),
		zap.String("oracle", d.cfg.Relay.OracleAccount),
		zap.Int64("evm_chain_id", d.cfg.Relay.EvmChainID),
	)
	return svc, wait, nil
}
