package auth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

// CanonicalBytes payload 的规范化 JSON 编码
// 与客户端 JSON.stringify / serde_json 的输出一致: 字段按声明顺序, 不转义 HTML, 无结尾换行
func CanonicalBytes(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Verify 校验 session key 对 payload 的 ed25519 签名
// key 去掉曲线前缀后必须是 32 字节, 签名必须是 64 字节
func Verify(payload any, signature []byte, sessionKey near.PublicKey) error {
	msg, err := CanonicalBytes(payload)
	if err != nil {
		return errno.ErrInvalidSignature.WithMessage(err.Error())
	}
	return VerifyBytes(msg, signature, sessionKey)
}

func VerifyBytes(msg, signature []byte, sessionKey near.PublicKey) error {
	if sessionKey.Type != near.ED25519 {
		return errno.ErrInvalidSignature.WithMessage("session key must be ed25519")
	}
	raw := sessionKey.Bytes()[1:]
	if len(raw) != ed25519.PublicKeySize {
		return errno.ErrInvalidSignature.WithMessage(fmt.Sprintf("invalid key length %d", len(raw)))
	}
	if len(signature) != ed25519.SignatureSize {
		return errno.ErrInvalidSignature.WithMessage(fmt.Sprintf("invalid signature length %d", len(signature)))
	}
	if !ed25519.Verify(ed25519.PublicKey(raw), msg, signature) {
		return errno.ErrInvalidSignature
	}
	return nil
}

// Sign 客户端 / 测试使用: 用 session key 私钥签名 payload
func Sign(payload any, priv ed25519.PrivateKey) ([]byte, error) {
	msg, err := CanonicalBytes(payload)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, msg), nil
}
