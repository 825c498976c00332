package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"relay-core/pkg/crypto_util"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

// EthImplicitAccount 由 secp256k1 公钥计算 NEAR 上的 ETH 隐式账户
// 规则: "0x" + 小写 hex(keccak256(X||Y)[12:])
func EthImplicitAccount(pub *btcec.PublicKey) string {
	uncompressed := pub.SerializeUncompressed() // 65 bytes, 0x04...
	return "0x" + hex.EncodeToString(crypto_util.Keccak256(uncompressed[1:])[12:])
}

// EthImplicitAccountFromNearKey 接受 "secp256k1:<base58 64 字节>" 形式的公钥
func EthImplicitAccountFromNearKey(pk near.PublicKey) (string, error) {
	pub, err := ParseNearSecp256k1(pk)
	if err != nil {
		return "", err
	}
	return EthImplicitAccount(pub), nil
}

// ParseNearSecp256k1 NEAR secp256k1 公钥 (64 字节, 无 0x04 前缀) 转 btcec 公钥
func ParseNearSecp256k1(pk near.PublicKey) (*btcec.PublicKey, error) {
	if pk.Type != near.SECP256K1 || len(pk.Data) != 64 {
		return nil, errno.ErrInvalidEncoding.WithMessage("expected 64-byte secp256k1 key")
	}
	pub, err := btcec.ParsePubKey(append([]byte{0x04}, pk.Data...))
	if err != nil {
		return nil, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("secp256k1 point: %v", err))
	}
	return pub, nil
}

// NearSecp256k1Key btcec 公钥转 NEAR 表示
func NearSecp256k1Key(pub *btcec.PublicKey) near.PublicKey {
	return near.PublicKey{Type: near.SECP256K1, Data: pub.SerializeUncompressed()[1:]}
}

// ChecksumAddress 20 字节地址的 EIP-55 表示, 用于日志展示
func ChecksumAddress(addr []byte) string {
	return "0x" + toChecksumAddress(hex.EncodeToString(addr))
}

// toChecksumAddress 实现 EIP-55 混合大小写校验
func toChecksumAddress(address string) string {
	address = strings.ToLower(address)
	hexHash := hex.EncodeToString(crypto_util.Keccak256([]byte(address)))

	var sb strings.Builder
	for i := 0; i < len(address); i++ {
		char := address[i]
		if hexCharToInt(hexHash[i]) >= 8 {
			sb.WriteString(strings.ToUpper(string(char)))
		} else {
			sb.WriteByte(char)
		}
	}
	return sb.String()
}

func hexCharToInt(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 10
	}
	return 0
}
