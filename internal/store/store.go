package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// 每条记录除 key/value 外的固定开销 (字节), 与 NEAR 的 storage_num_extra_bytes_record 一致
const RecordOverhead = 40

const usageKey = "__meta:storage_usage"

// Write 批量写入中的一条
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// Backend 持久化层, Apply 必须原子地写入整个批次
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Apply(ctx context.Context, batch []Write) error
	Close() error
}

type pendingEntry struct {
	value   []byte // nil 表示删除
	deleted bool
}

// Store 在 Backend 之上维护一层写缓存:
// 写入先进入 pending, Flush 时原子提交, Rollback 丢弃
type Store struct {
	backend Backend

	mu      sync.Mutex
	pending map[string]pendingEntry
	usage   int64 // 已提交的存储用量 (字节)
	delta   int64 // pending 带来的用量变化
}

// Open 读取已提交的存储用量
func Open(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		pending: make(map[string]pendingEntry),
	}
	raw, ok, err := backend.Get(ctx, usageKey)
	if err != nil {
		return nil, fmt.Errorf("读取存储用量失败: %w", err)
	}
	if ok && len(raw) == 8 {
		s.usage = int64(binary.BigEndian.Uint64(raw))
	}
	return s, nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	p, ok := s.pending[key]
	s.mu.Unlock()
	if ok {
		if p.deleted {
			return nil, false, nil
		}
		return p.value, true, nil
	}
	return s.backend.Get(ctx, key)
}

func (s *Store) put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	old, existed, err := s.get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = pendingEntry{value: value}
	s.delta += recordSize(key, value)
	if existed {
		s.delta -= recordSize(key, old)
	}
	return old, existed, nil
}

func (s *Store) del(ctx context.Context, key string) ([]byte, bool, error) {
	old, existed, err := s.get(ctx, key)
	if err != nil || !existed {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = pendingEntry{deleted: true}
	s.delta -= recordSize(key, old)
	return old, true, nil
}

func recordSize(key string, value []byte) int64 {
	return int64(len(key) + len(value) + RecordOverhead)
}

// Refresh 重新读取已提交的存储用量, 多个进程共享 Backend 时在加锁后调用
func (s *Store) Refresh(ctx context.Context) error {
	raw, ok, err := s.backend.Get(ctx, usageKey)
	if err != nil {
		return fmt.Errorf("读取存储用量失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > 0 {
		return fmt.Errorf("存在未提交的写入")
	}
	s.usage = 0
	if ok && len(raw) == 8 {
		s.usage = int64(binary.BigEndian.Uint64(raw))
	}
	return nil
}

// Usage 已提交的存储用量
func (s *Store) Usage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// PendingUsage 提交 pending 之后的存储用量
func (s *Store) PendingUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage + s.delta
}

// Flush 将 pending 原子写入 Backend
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := make([]Write, 0, len(keys)+1)
	for _, k := range keys {
		p := s.pending[k]
		batch = append(batch, Write{Key: k, Value: p.value, Delete: p.deleted})
	}

	usage := s.usage + s.delta
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(usage))
	batch = append(batch, Write{Key: usageKey, Value: raw[:]})

	if err := s.backend.Apply(ctx, batch); err != nil {
		return fmt.Errorf("提交状态失败: %w", err)
	}

	s.usage = usage
	s.delta = 0
	s.pending = make(map[string]pendingEntry)
	return nil
}

// Rollback 丢弃尚未提交的写入
func (s *Store) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]pendingEntry)
	s.delta = 0
}

// Dirty 是否存在未提交的写入
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

func (s *Store) Close() error {
	return s.backend.Close()
}
