package signer

import (
	"context"

	"relay-core/pkg/mpc"
	"relay-core/pkg/near"
)

// Signer 门限签名服务: 对 32 字节摘要按 path 派生的子密钥签名
type Signer interface {
	Sign(ctx context.Context, req mpc.SignRequest) (*mpc.SignResult, error)
	DerivedPublicKey(ctx context.Context, path string) (near.PublicKey, error)
}
