package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/mpc"
	"relay-core/pkg/near"
)

// SignGas 签名请求分配的 gas
const SignGas = 50 * near.TGas

// SignCall signer_sign 的参数, 签名服务按 deposit 收费
type SignCall struct {
	Args    mpc.SignRequest `json:"args"`
	Deposit near.Token      `json:"deposit"`
	Gas     near.Gas        `json:"gas"`
}

// RPCClient 通过 JSON-RPC 调用远端签名服务
type RPCClient struct {
	client      *rpc.Client
	predecessor string
	deposit     near.Token
}

func Dial(ctx context.Context, url, predecessor string, deposit near.Token) (*RPCClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接签名服务失败: %w", err)
	}
	return NewRPCClient(c, predecessor, deposit), nil
}

func NewRPCClient(c *rpc.Client, predecessor string, deposit near.Token) *RPCClient {
	return &RPCClient{client: c, predecessor: predecessor, deposit: deposit}
}

func (c *RPCClient) Sign(ctx context.Context, req mpc.SignRequest) (*mpc.SignResult, error) {
	start := time.Now()
	var res mpc.SignResult
	err := c.client.CallContext(ctx, &res, "signer_sign", SignCall{
		Args:    req,
		Deposit: c.deposit,
		Gas:     near.Gas(SignGas),
	})
	if err != nil {
		logger.Warn("签名服务返回错误", zap.String("path", req.Path), zap.Error(err))
		return nil, errno.ErrSigningFailed.WithMessage(err.Error())
	}
	logger.Debug("签名完成",
		zap.String("path", req.Path),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &res, nil
}

func (c *RPCClient) DerivedPublicKey(ctx context.Context, path string) (near.PublicKey, error) {
	var raw string
	if err := c.client.CallContext(ctx, &raw, "signer_derivedPublicKey", path, c.predecessor); err != nil {
		return near.PublicKey{}, fmt.Errorf("derived_public_key: %w", err)
	}
	pk, err := near.ParsePublicKey(raw)
	if err != nil {
		return near.PublicKey{}, err
	}
	if pk.Type != near.SECP256K1 {
		return near.PublicKey{}, errno.ErrInvalidEncoding.WithMessage("derived key must be secp256k1")
	}
	return pk, nil
}

func (c *RPCClient) Close() {
	c.client.Close()
}
