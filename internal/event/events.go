package event

import (
	"time"
)

// TopicRelay 签名流程事件
const TopicRelay = "relay_events"

// Status 一个动作的签名流程状态
type Status string

const (
	StatusBuilt             Status = "built"
	StatusAwaitingSignature Status = "awaiting_signature"
	StatusRelayed           Status = "relayed"
	StatusFailed            Status = "failed"
)

// ActionEvent 状态迁移
// Failed 事件中 Debited 非零表示已扣款但不会自动退还
type ActionEvent struct {
	ActionID string    `json:"action_id"`
	Kind     string    `json:"kind"`
	Status   Status    `json:"status"`
	AppID    string    `json:"app_id,omitempty"`
	Path     string    `json:"path"`
	Wallet   string    `json:"wallet"`
	Target   string    `json:"target"`
	Debited  string    `json:"debited"` // yocto
	Reason   string    `json:"reason,omitempty"`
	TxHash   string    `json:"tx_hash,omitempty"`
	At       time.Time `json:"at"`
}

// Terminal Relayed 或 Failed
func (e ActionEvent) Terminal() bool {
	return e.Status == StatusRelayed || e.Status == StatusFailed
}
