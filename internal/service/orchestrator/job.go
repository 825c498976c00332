package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

// Kind 目标交易类型
type Kind string

const (
	KindEVM    Kind = "evm"    // 经 NEAR EVM 钱包合约 rlp_execute
	KindNative Kind = "native" // bundle 账户直接签名的 NEAR 交易
)

// SignJob 挂起时捕获的全部上下文, 回调不再读取可变状态
type SignJob struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Digest    []byte     `json:"digest"`
	Path      string     `json:"path"`
	Unsigned  []byte     `json:"unsigned"`
	Wallet    string     `json:"wallet"` // bundle 的外部账户
	Target    string     `json:"target"` // 目标账户 / 合约
	Deposit   near.Token `json:"deposit"`
	AppID     string     `json:"app_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewJobID() string {
	return uuid.NewString()
}

func (j SignJob) digest() ([32]byte, error) {
	var d [32]byte
	if len(j.Digest) != len(d) {
		return d, errno.ErrInvalidEncoding.WithMessage("digest must be 32 bytes")
	}
	copy(d[:], j.Digest)
	return d, nil
}
