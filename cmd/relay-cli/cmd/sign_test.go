package cmd

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/internal/model"
	"relay-core/internal/service/auth"
	"relay-core/pkg/keystore"
	"relay-core/pkg/near"
)

func TestBuildSignedRequest(t *testing.T) {
	seed := bytes.Repeat([]byte{3}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	pk, err := near.NewPublicKey(near.ED25519, priv.Public().(ed25519.PublicKey))
	require.NoError(t, err)

	t.Run("EVM 变体", func(t *testing.T) {
		data := []byte(`{"action":{"Transfer":{"receiver_id":"bob.near","amount":"1000"}},"nonce":"7"}`)
		req, err := buildSignedRequest(seed, "a", data, false)
		require.NoError(t, err)
		assert.Equal(t, pk.String(), req.SessionKey)
		assert.Equal(t, "a", req.AppID)

		p, ok := req.Payload.(model.Payload)
		require.True(t, ok)
		assert.Equal(t, "bob.near", p.Action.Transfer.ReceiverID)

		sig, err := base64.StdEncoding.DecodeString(req.Signature)
		require.NoError(t, err)
		// 服务端对重新解析的 payload 验签
		assert.NoError(t, auth.Verify(p, sig, pk))
	})

	t.Run("原生变体", func(t *testing.T) {
		data := []byte(`{"action":{"FunctionCall":{"contract_id":"c.near","method_name":"m","args":[1,2],"gas":"1","deposit":"0"}},"nonce":"1","block_hash":"11111111111111111111111111111111"}`)
		req, err := buildSignedRequest(seed, "", data, true)
		require.NoError(t, err)
		p, ok := req.Payload.(model.NativePayload)
		require.True(t, ok)
		sig, err := base64.StdEncoding.DecodeString(req.Signature)
		require.NoError(t, err)
		assert.NoError(t, auth.Verify(p, sig, pk))
	})

	tests := []struct {
		name string
		seed []byte
		data string
	}{
		{"seed 长度错误", seed[:16], `{"action":{"Transfer":{"receiver_id":"bob.near","amount":"1"}},"nonce":"1"}`},
		{"JSON 错误", seed, `{`},
		{"空动作", seed, `{"action":{},"nonce":"1"}`},
		{"非法账户", seed, `{"action":{"Transfer":{"receiver_id":"Bob!","amount":"1"}},"nonce":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildSignedRequest(tt.seed, "", []byte(tt.data), false)
			assert.Error(t, err)
		})
	}
}

func TestSessionKeyKeystoreRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, ed25519.SeedSize)
	k, err := keystore.Encrypt(keystore.KindSessionKey, seed, "pw", keystore.LightScryptN)
	require.NoError(t, err)

	got, err := keystore.Decrypt(k, "pw")
	require.NoError(t, err)
	req, err := buildSignedRequest(got, "", []byte(`{"action":{"Transfer":{"receiver_id":"bob.near","amount":"1"}},"nonce":"1"}`), false)
	require.NoError(t, err)

	want, err := near.NewPublicKey(near.ED25519, ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, want.String(), req.SessionKey)
}
