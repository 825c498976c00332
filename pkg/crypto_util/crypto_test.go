package crypto_util

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashes(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SHA256 空输入", hex.EncodeToString(SHA256()), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"SHA256 分段", hex.EncodeToString(SHA256([]byte("a"), []byte("bc"))), hex.EncodeToString(SHA256([]byte("abc")))},
		{"Keccak256 空输入", hex.EncodeToString(Keccak256()), "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"Blake3 空输入", Blake3Hex(nil), "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestAESGCM(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	plaintext := []byte("这是一条用于 AES-GCM 测试的秘密消息")

	sealed, err := EncryptAESGCM(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, sealed, GCMNonceSize+len(plaintext)+16)

	got, err := DecryptAESGCM(key, sealed)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, got))

	t.Run("密钥错误", func(t *testing.T) {
		_, err := DecryptAESGCM([]byte("fedcba9876543210fedcba9876543210"), sealed)
		assert.Error(t, err)
	})
	t.Run("密文太短", func(t *testing.T) {
		_, err := DecryptAESGCM(key, sealed[:4])
		assert.Error(t, err)
	})
	t.Run("密钥长度非法", func(t *testing.T) {
		_, err := EncryptAESGCM([]byte("short"), plaintext)
		assert.Error(t, err)
	})
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	b, err := RandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
