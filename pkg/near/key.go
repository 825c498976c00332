package near

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/fxamacker/cbor/v2"

	"relay-core/pkg/errno"
)

// KeyType NEAR 公钥曲线类型 (同 borsh 编码中的前缀字节)
type KeyType byte

const (
	ED25519   KeyType = 0
	SECP256K1 KeyType = 1
)

func (k KeyType) String() string {
	switch k {
	case ED25519:
		return "ed25519"
	case SECP256K1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

func (k KeyType) dataLen() int {
	if k == SECP256K1 {
		return 64
	}
	return 32
}

// PublicKey "ed25519:<base58>" 或 "secp256k1:<base58 64 字节, 无 0x04 前缀>"
type PublicKey struct {
	Type KeyType
	Data []byte
}

func ParsePublicKey(s string) (PublicKey, error) {
	curve, encoded, found := strings.Cut(s, ":")
	if !found {
		// 无前缀时按 ed25519 处理
		curve, encoded = "ed25519", s
	}

	var kt KeyType
	switch curve {
	case "ed25519":
		kt = ED25519
	case "secp256k1":
		kt = SECP256K1
	default:
		return PublicKey{}, errno.ErrInvalidEncoding.WithMessage("unknown curve " + curve)
	}

	data := base58.Decode(encoded)
	if len(data) != kt.dataLen() {
		return PublicKey{}, errno.ErrInvalidEncoding.WithMessage(
			fmt.Sprintf("%s key must be %d bytes, got %d", kt, kt.dataLen(), len(data)))
	}
	return PublicKey{Type: kt, Data: data}, nil
}

// NewPublicKey 从原始字节构造, 长度必须与曲线匹配
func NewPublicKey(kt KeyType, data []byte) (PublicKey, error) {
	if len(data) != kt.dataLen() {
		return PublicKey{}, errno.ErrInvalidEncoding.WithMessage(
			fmt.Sprintf("%s key must be %d bytes, got %d", kt, kt.dataLen(), len(data)))
	}
	return PublicKey{Type: kt, Data: append([]byte(nil), data...)}, nil
}

func (pk PublicKey) String() string {
	return pk.Type.String() + ":" + base58.Encode(pk.Data)
}

// Bytes 曲线前缀 + 原始数据 (与 NEAR 的二进制表示一致)
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, 0, 1+len(pk.Data))
	out = append(out, byte(pk.Type))
	return append(out, pk.Data...)
}

func (pk PublicKey) IsZero() bool {
	return len(pk.Data) == 0
}

func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errno.ErrInvalidEncoding.WithMessage("public key must be a string")
	}
	v, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pk = v
	return nil
}

func (pk PublicKey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(pk.String())
}

func (pk *PublicKey) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pk = v
	return nil
}

// DecodeBlockHash base58 区块哈希, 必须为 32 字节
func DecodeBlockHash(s string) ([32]byte, error) {
	var out [32]byte
	data := base58.Decode(s)
	if len(data) != 32 {
		return out, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("block hash must be 32 bytes, got %d", len(data)))
	}
	copy(out[:], data)
	return out, nil
}
