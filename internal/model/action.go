package model

import (
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

// 转账没有 gas 字段, 使用默认 5 TGas
const DefaultTransferGas = 5 * near.TGas

// TransferMethod 用量统计中转账的方法名
const TransferMethod = "transfer"

type FunctionCallAction struct {
	ContractID string         `json:"contract_id"`
	MethodName string         `json:"method_name"`
	Args       near.ByteArray `json:"args"`
	Gas        near.Gas       `json:"gas"`
	Deposit    near.Token     `json:"deposit"`
}

type TransferAction struct {
	ReceiverID string     `json:"receiver_id"`
	Amount     near.Token `json:"amount"`
}

// Action 外部标签枚举: {"FunctionCall":{...}} 或 {"Transfer":{...}}
type Action struct {
	FunctionCall *FunctionCallAction `json:"FunctionCall,omitempty"`
	Transfer     *TransferAction     `json:"Transfer,omitempty"`
}

// Payload session key 签名的内容
type Payload struct {
	Action Action   `json:"action"`
	Nonce  near.U64 `json:"nonce"`
}

// NativePayload 原生交易变体, 由调用方提供 nonce 和最近区块哈希
type NativePayload struct {
	Action    Action   `json:"action"`
	Nonce     near.U64 `json:"nonce"`
	BlockHash string   `json:"block_hash"`
}

func (a Action) Validate() error {
	switch {
	case a.FunctionCall != nil && a.Transfer != nil:
		return errno.ErrInvalidEncoding.WithMessage("action must be exactly one of FunctionCall or Transfer")
	case a.FunctionCall != nil:
		if a.FunctionCall.MethodName == "" {
			return errno.ErrInvalidEncoding.WithMessage("method_name is empty")
		}
		return near.ValidateAccountID(a.FunctionCall.ContractID)
	case a.Transfer != nil:
		return near.ValidateAccountID(a.Transfer.ReceiverID)
	default:
		return errno.ErrInvalidEncoding.WithMessage("action is empty")
	}
}

// Target 目标账户 / 合约
func (a Action) Target() string {
	if a.FunctionCall != nil {
		return a.FunctionCall.ContractID
	}
	if a.Transfer != nil {
		return a.Transfer.ReceiverID
	}
	return ""
}

// Amount 动作携带的金额, 需要从 app 余额扣减
func (a Action) Amount() near.Token {
	if a.FunctionCall != nil {
		return a.FunctionCall.Deposit
	}
	if a.Transfer != nil {
		return a.Transfer.Amount
	}
	return near.Token{}
}

func (a Action) Method() string {
	if a.FunctionCall != nil {
		return a.FunctionCall.MethodName
	}
	return TransferMethod
}

// Gas 源链 gas 预算
func (a Action) Gas() uint64 {
	if a.FunctionCall != nil {
		return uint64(a.FunctionCall.Gas)
	}
	return DefaultTransferGas
}
