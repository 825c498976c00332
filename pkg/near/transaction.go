package near

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"relay-core/pkg/errno"
)

// 只实现 relay 需要的两种 Action, 其余变体的 borsh 下标保留
const (
	actionFunctionCall byte = 2
	actionTransfer     byte = 3
)

// Action 原生交易中的单个动作
type Action interface {
	encode(w *borshWriter)
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    Token
}

func (a FunctionCall) encode(w *borshWriter) {
	w.u8(actionFunctionCall)
	w.string(a.MethodName)
	w.bytes(a.Args)
	w.u64(a.Gas)
	w.u128(a.Deposit)
}

type Transfer struct {
	Deposit Token
}

func (a Transfer) encode(w *borshWriter) {
	w.u8(actionTransfer)
	w.u128(a.Deposit)
}

// Transaction NEAR 原生交易
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// Encode borsh 序列化
func (tx *Transaction) Encode() []byte {
	w := &borshWriter{}
	w.string(tx.SignerID)
	w.raw(tx.PublicKey.Bytes())
	w.u64(tx.Nonce)
	w.string(tx.ReceiverID)
	w.raw(tx.BlockHash[:])
	w.u32(uint32(len(tx.Actions)))
	for _, a := range tx.Actions {
		a.encode(w)
	}
	return w.buf.Bytes()
}

// Hash 待签名摘要: sha256(borsh(tx))
func (tx *Transaction) Hash() [32]byte {
	return sha256.Sum256(tx.Encode())
}

// EncodeSigned 附加签名后的 SignedTransaction 编码
// secp256k1 签名为 r||s||v 65 字节, ed25519 为 64 字节
func EncodeSigned(txBytes []byte, kt KeyType, sig []byte) ([]byte, error) {
	want := 64
	if kt == SECP256K1 {
		want = 65
	}
	if len(sig) != want {
		return nil, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("%s signature must be %d bytes, got %d", kt, want, len(sig)))
	}
	out := make([]byte, 0, len(txBytes)+1+len(sig))
	out = append(out, txBytes...)
	out = append(out, byte(kt))
	return append(out, sig...), nil
}

type borshWriter struct {
	buf bytes.Buffer
}

func (w *borshWriter) u8(v byte) {
	w.buf.WriteByte(v)
}

func (w *borshWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *borshWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *borshWriter) u128(t Token) {
	be := t.v.Bytes32()
	// 低 16 字节, 小端
	var le [16]byte
	for i := 0; i < 16; i++ {
		le[i] = be[31-i]
	}
	w.buf.Write(le[:])
}

func (w *borshWriter) string(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *borshWriter) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *borshWriter) raw(b []byte) {
	w.buf.Write(b)
}
