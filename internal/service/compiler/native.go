package compiler

import (
	"relay-core/internal/model"
	"relay-core/pkg/near"
)

// NativeBuild NEAR 原生交易, 不经过 EVM 钱包
type NativeBuild struct {
	Tx      *near.Transaction
	Bytes   []byte
	Digest  [32]byte
	Target  string
	Deposit near.Token
}

// CompileNative 由 bundle 账户签名, 直接调用目标合约
func (c *Compiler) CompileNative(signerID string, signerKey near.PublicKey, action model.Action, nonce uint64, blockHash string) (*NativeBuild, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	hash, err := near.DecodeBlockHash(blockHash)
	if err != nil {
		return nil, err
	}

	var a near.Action
	if fc := action.FunctionCall; fc != nil {
		a = near.FunctionCall{
			MethodName: fc.MethodName,
			Args:       []byte(fc.Args),
			Gas:        uint64(fc.Gas),
			Deposit:    fc.Deposit,
		}
	} else {
		a = near.Transfer{Deposit: action.Transfer.Amount}
	}

	tx := &near.Transaction{
		SignerID:   signerID,
		PublicKey:  signerKey,
		Nonce:      nonce,
		ReceiverID: action.Target(),
		BlockHash:  hash,
		Actions:    []near.Action{a},
	}
	raw := tx.Encode()

	return &NativeBuild{
		Tx:      tx,
		Bytes:   raw,
		Digest:  tx.Hash(),
		Target:  action.Target(),
		Deposit: action.Amount(),
	}, nil
}

// AttachNativeSignature secp256k1 签名 r||s||v 追加到 borsh 交易后
func AttachNativeSignature(txBytes []byte, r, s []byte, v byte) ([]byte, error) {
	sig := make([]byte, 0, 65)
	sig = append(sig, r...)
	sig = append(sig, s...)
	sig = append(sig, v)
	return near.EncodeSigned(txBytes, near.SECP256K1, sig)
}
