package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"relay-core/pkg/logger"
	"relay-core/pkg/monitor"
	"relay-core/pkg/utils/lock"
)

const storageUsageLockKey = "cron:lock:storage_usage"

// UsageSource 提供已提交的存储用量
type UsageSource interface {
	StorageUsage(ctx context.Context) (int64, error)
}

type Service struct {
	cron   *cron.Cron
	usage  UsageSource
	locker lock.DistributedLock
}

// New locker 为 nil 时每个实例都执行任务
func New(usage UsageSource, locker lock.DistributedLock) *Service {
	return &Service{
		cron:   cron.New(),
		usage:  usage,
		locker: locker,
	}
}

func (s *Service) Start() {
	// 注册任务
	_, _ = s.cron.AddFunc("@every 1m", s.ReportStorageUsage)

	s.cron.Start()
	logger.Info("Cron Service started")
}

func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Cron Service stopped")
}

// ReportStorageUsage 把存储用量写入 relay_storage_usage_bytes
// 多实例共享状态时只需一个实例上报
func (s *Service) ReportStorageUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.locker != nil {
		locked, err := s.locker.Acquire(ctx, storageUsageLockKey, 10*time.Second)
		if err != nil || !locked {
			logger.Debug("ReportStorageUsage: 获取锁失败或已有实例在运行")
			return
		}
		defer func() { _ = s.locker.Release(context.WithoutCancel(ctx), storageUsageLockKey) }()
	}

	usage, err := s.usage.StorageUsage(ctx)
	if err != nil {
		logger.Warn("读取存储用量失败", zap.Error(err))
		return
	}
	monitor.SetStorageUsage(usage)
	logger.Debug("存储用量", zap.Int64("bytes", usage))
}
