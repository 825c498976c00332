package store

import (
	"context"
	"sync"
)

// MemoryBackend 进程内实现, 用于测试和 store.backend=memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b *MemoryBackend) Apply(ctx context.Context, batch []Write) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range batch {
		if w.Delete {
			delete(b.data, w.Key)
			continue
		}
		b.data[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}

// Len 记录数 (含元数据)
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

func (b *MemoryBackend) Close() error {
	return nil
}
