package mq

import "context"

// Message 通用业务消息
type Message struct {
	ID       string // 消息ID (Redis Stream ID / Kafka offset)
	Topic    string // 主题
	Key      string // 分区键, 这里使用 action id
	Payload  []byte // JSON
	Metadata map[string]string
}

// Producer 生产者接口
type Producer interface {
	// Publish key 用于分区排序, 同一 action 的事件保持有序
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Consumer 消费者接口
type Consumer interface {
	// Subscribe handler 返回 error 时消息不确认
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}
