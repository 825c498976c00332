package auth

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/internal/model"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

func sessionKey(t *testing.T) (near.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pk, err := near.NewPublicKey(near.ED25519, pub)
	require.NoError(t, err)
	return pk, priv
}

func samplePayload() model.Payload {
	return model.Payload{
		Action: model.Action{FunctionCall: &model.FunctionCallAction{
			ContractID: "game.near",
			MethodName: "move",
			Args:       near.ByteArray(`{"to":"<a&b>"}`),
			Gas:        near.Gas(30 * near.TGas),
			Deposit:    near.NewToken(0),
		}},
		Nonce: 1,
	}
}

func TestCanonicalBytes(t *testing.T) {
	payload := model.Payload{
		Action: model.Action{Transfer: &model.TransferAction{ReceiverID: "bob", Amount: near.NewToken(1)}},
		Nonce:  3,
	}
	b, err := CanonicalBytes(payload)
	require.NoError(t, err)
	// 与 JSON.stringify({action:{Transfer:{receiver_id:"bob",amount:"1"}},nonce:"3"}) 一致
	assert.Equal(t, `{"action":{"Transfer":{"receiver_id":"bob","amount":"1"}},"nonce":"3"}`, string(b))

	b, err = CanonicalBytes(model.Payload{Action: model.Action{FunctionCall: &model.FunctionCallAction{
		ContractID: "c.near", MethodName: "m", Args: near.ByteArray{60, 38}, Gas: 7, Deposit: near.NewToken(0),
	}}})
	require.NoError(t, err)
	assert.Equal(t, `{"action":{"FunctionCall":{"contract_id":"c.near","method_name":"m","args":[60,38],"gas":"7","deposit":"0"}},"nonce":"0"}`, string(b))
}

func TestVerify(t *testing.T) {
	pk, priv := sessionKey(t)
	payload := samplePayload()

	sig, err := Sign(payload, priv)
	require.NoError(t, err)
	require.NoError(t, Verify(payload, sig, pk))

	// 改动 payload 任何字段都会失败
	tampered := samplePayload()
	tampered.Nonce = 2
	assert.True(t, errors.Is(Verify(tampered, sig, pk), errno.ErrInvalidSignature))

	// 换一个 key
	other, _ := sessionKey(t)
	assert.True(t, errors.Is(Verify(payload, sig, other), errno.ErrInvalidSignature))
}

func TestVerifyRejectsBitFlips(t *testing.T) {
	pk, priv := sessionKey(t)
	msg, err := CanonicalBytes(samplePayload())
	require.NoError(t, err)
	sig := ed25519.Sign(priv, msg)
	require.NoError(t, VerifyBytes(msg, sig, pk))

	for i := 0; i < len(msg)*8; i += 7 {
		flipped := append([]byte(nil), msg...)
		flipped[i/8] ^= 1 << (i % 8)
		assert.Error(t, VerifyBytes(flipped, sig, pk), "payload bit %d", i)
	}
	for i := 0; i < len(sig)*8; i++ {
		flipped := append([]byte(nil), sig...)
		flipped[i/8] ^= 1 << (i % 8)
		assert.Error(t, VerifyBytes(msg, flipped, pk), "signature bit %d", i)
	}
}

func TestVerifyMalformed(t *testing.T) {
	pk, priv := sessionKey(t)
	payload := samplePayload()
	sig, err := Sign(payload, priv)
	require.NoError(t, err)

	tests := []struct {
		name string
		sig  []byte
		key  near.PublicKey
	}{
		{"短签名", sig[:63], pk},
		{"长签名", append(append([]byte(nil), sig...), 0), pk},
		{"secp256k1 key", sig, near.PublicKey{Type: near.SECP256K1, Data: make([]byte, 64)}},
		{"短 key", sig, near.PublicKey{Type: near.ED25519, Data: pk.Data[:31]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(Verify(payload, tt.sig, tt.key), errno.ErrInvalidSignature))
		})
	}
}
