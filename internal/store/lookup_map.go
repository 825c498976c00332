package store

import (
	"context"
	"fmt"

	"relay-core/pkg/codec"
)

// LookupMap 带前缀的类型化映射, 值使用确定性 CBOR 编码
type LookupMap[K any, V any] struct {
	store  *Store
	prefix string
	keyFn  func(K) string
}

func NewLookupMap[K any, V any](s *Store, prefix string, keyFn func(K) string) *LookupMap[K, V] {
	return &LookupMap[K, V]{store: s, prefix: prefix, keyFn: keyFn}
}

// StringKey 字符串键
func StringKey(k string) string {
	return k
}

func (m *LookupMap[K, V]) key(k K) string {
	return m.prefix + m.keyFn(k)
}

func (m *LookupMap[K, V]) decode(raw []byte) (V, error) {
	var v V
	if err := codec.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("解码 %s 失败: %w", m.prefix, err)
	}
	return v, nil
}

func (m *LookupMap[K, V]) Get(ctx context.Context, k K) (V, bool, error) {
	var zero V
	raw, ok, err := m.store.get(ctx, m.key(k))
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := m.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Insert 返回旧值 (若存在)
func (m *LookupMap[K, V]) Insert(ctx context.Context, k K, v V) (V, bool, error) {
	var zero V
	raw, err := codec.Marshal(v)
	if err != nil {
		return zero, false, fmt.Errorf("编码 %s 失败: %w", m.prefix, err)
	}
	old, existed, err := m.store.put(ctx, m.key(k), raw)
	if err != nil || !existed {
		return zero, false, err
	}
	prev, err := m.decode(old)
	if err != nil {
		return zero, true, err
	}
	return prev, true, nil
}

func (m *LookupMap[K, V]) Remove(ctx context.Context, k K) (V, bool, error) {
	var zero V
	old, existed, err := m.store.del(ctx, m.key(k))
	if err != nil || !existed {
		return zero, false, err
	}
	prev, err := m.decode(old)
	if err != nil {
		return zero, true, err
	}
	return prev, true, nil
}

func (m *LookupMap[K, V]) ContainsKey(ctx context.Context, k K) (bool, error) {
	_, ok, err := m.store.get(ctx, m.key(k))
	return ok, err
}

// Flush 提交整个 Store 的写入
func (m *LookupMap[K, V]) Flush(ctx context.Context) error {
	return m.store.Flush(ctx)
}
