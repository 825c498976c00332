package mpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignRequest 发给门限签名服务的请求体
// JSON: {"request":{"payload":[32]u8,"path":"...","key_version":0}}
type SignRequest struct {
	Payload    [32]byte
	Path       string
	KeyVersion uint32
}

func (r SignRequest) MarshalJSON() ([]byte, error) {
	payload := make([]int, len(r.Payload))
	for i, b := range r.Payload {
		payload[i] = int(b)
	}
	return json.Marshal(map[string]any{
		"request": map[string]any{
			"payload":     payload,
			"path":        r.Path,
			"key_version": r.KeyVersion,
		},
	})
}

func (r *SignRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		Request struct {
			Payload    []int  `json:"payload"`
			Path       string `json:"path"`
			KeyVersion uint32 `json:"key_version"`
		} `json:"request"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if len(wire.Request.Payload) != len(r.Payload) {
		return fmt.Errorf("payload must be %d bytes, got %d", len(r.Payload), len(wire.Request.Payload))
	}
	for i, v := range wire.Request.Payload {
		if v < 0 || v > 255 {
			return fmt.Errorf("payload byte %d out of range", v)
		}
		r.Payload[i] = byte(v)
	}
	r.Path = wire.Request.Path
	r.KeyVersion = wire.Request.KeyVersion
	return nil
}

type AffinePoint struct {
	AffinePoint string `json:"affine_point"`
}

type Scalar struct {
	Scalar string `json:"scalar"`
}

// SignResult 签名服务的成功响应
type SignResult struct {
	BigR       AffinePoint `json:"big_r"`
	S          Scalar      `json:"s"`
	RecoveryID uint8       `json:"recovery_id"`
}

func (r SignResult) String() string {
	return fmt.Sprintf("big_r=%s s=%s v=%d", r.BigR.AffinePoint, r.S.Scalar, r.RecoveryID)
}

// SignDigest 用私钥对 32 字节摘要签名并转换为签名服务的响应格式
// big_r 为压缩点: (0x02 | v&1) || r
func SignDigest(priv *btcec.PrivateKey, digest [32]byte) (*SignResult, error) {
	sig, err := crypto.Sign(digest[:], priv.ToECDSA())
	if err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}
	r, s, v := sig[:32], sig[32:64], sig[64]

	bigR := append([]byte{0x02 | (v & 1)}, r...)
	return &SignResult{
		BigR:       AffinePoint{AffinePoint: hex.EncodeToString(bigR)},
		S:          Scalar{Scalar: hex.EncodeToString(s)},
		RecoveryID: v,
	}, nil
}
