package relayer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

const (
	// ExecuteMethod 钱包合约上执行已签名 EVM 交易的入口
	ExecuteMethod = "rlp_execute"
	// ExecuteGas rlp_execute 分配的 gas
	ExecuteGas = 210 * near.TGas
)

// FunctionCall 由 relay 账户发起的一次合约调用
type FunctionCall struct {
	ReceiverID string          `json:"receiver_id"`
	MethodName string          `json:"method_name"`
	Args       json.RawMessage `json:"args"`
	Deposit    near.Token      `json:"deposit"`
	Gas        near.Gas        `json:"gas"`
}

// ExecuteArgs rlp_execute 的参数
type ExecuteArgs struct {
	Target     string `json:"target"`
	TxBytesB64 string `json:"tx_bytes_b64"`
}

// Client relay 账户的交易提交服务
type Client struct {
	client *rpc.Client
}

func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接 relayer 失败: %w", err)
	}
	return New(c), nil
}

func New(c *rpc.Client) *Client {
	return &Client{client: c}
}

// Execute 调用 wallet.rlp_execute, 附带 deposit
func (c *Client) Execute(ctx context.Context, wallet, target, txB64 string, deposit near.Token) (string, error) {
	args, err := json.Marshal(ExecuteArgs{Target: target, TxBytesB64: txB64})
	if err != nil {
		return "", err
	}
	call := FunctionCall{
		ReceiverID: wallet,
		MethodName: ExecuteMethod,
		Args:       args,
		Deposit:    deposit,
		Gas:        near.Gas(ExecuteGas),
	}

	var txHash string
	if err := c.client.CallContext(ctx, &txHash, "relayer_functionCall", call); err != nil {
		return "", errno.ErrRelayFailed.WithMessage(err.Error())
	}
	logger.Info("rlp_execute 已提交",
		zap.String("wallet", wallet),
		zap.String("target", target),
		zap.String("deposit", deposit.String()),
		zap.String("tx_hash", txHash),
	)
	return txHash, nil
}

// Broadcast 广播已签名的 NEAR 原生交易
func (c *Client) Broadcast(ctx context.Context, signedB64 string) (string, error) {
	var txHash string
	if err := c.client.CallContext(ctx, &txHash, "relayer_broadcastTxAsync", signedB64); err != nil {
		return "", errno.ErrRelayFailed.WithMessage(err.Error())
	}
	return txHash, nil
}

// Transfer 从 relay 账户转出原生代币
func (c *Client) Transfer(ctx context.Context, to string, amount near.Token) (string, error) {
	var txHash string
	if err := c.client.CallContext(ctx, &txHash, "relayer_transfer", to, amount); err != nil {
		return "", errno.ErrRelayFailed.WithMessage(err.Error())
	}
	logger.Info("转账已提交", zap.String("to", to), zap.String("amount", amount.String()), zap.String("tx_hash", txHash))
	return txHash, nil
}

func (c *Client) Close() {
	c.client.Close()
}
