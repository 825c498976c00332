package mq

import (
	"context"
	"encoding/json"
	"fmt"
)

// PublishJSON 以 JSON 编码后发布
func PublishJSON(ctx context.Context, p Producer, topic, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码消息失败: %w", err)
	}
	return p.Publish(ctx, topic, key, payload)
}
