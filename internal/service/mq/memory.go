package mq

import (
	"context"
	"strconv"
	"sync"
)

// MemoryBroker 进程内实现, 用于 mq_type=memory 和测试
// 同时实现 Producer 与 Consumer, 订阅前发布的消息会被保留
type MemoryBroker struct {
	mu      sync.Mutex
	seq     uint64
	topics  map[string][]*Message
	waiters map[string][]chan struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics:  make(map[string][]*Message),
		waiters: make(map[string][]chan struct{}),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.topics[topic] = append(b.topics[topic], &Message{
		ID:      strconv.FormatUint(b.seq, 10),
		Topic:   topic,
		Key:     key,
		Payload: append([]byte(nil), payload...),
	})
	for _, w := range b.waiters[topic] {
		close(w)
	}
	b.waiters[topic] = nil
	return nil
}

// Messages topic 下已发布消息的快照
func (b *MemoryBroker) Messages(topic string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Message(nil), b.topics[topic]...)
}

// Subscribe 从头开始按序投递, 阻塞直到 ctx 结束; handler 出错的消息跳过
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	next := 0
	for {
		b.mu.Lock()
		pending := b.topics[topic][next:]
		var wait chan struct{}
		if len(pending) == 0 {
			wait = make(chan struct{})
			b.waiters[topic] = append(b.waiters[topic], wait)
		}
		b.mu.Unlock()

		for _, msg := range pending {
			_ = handler(msg)
			next++
		}
		if wait == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

func (b *MemoryBroker) Close() error {
	return nil
}
