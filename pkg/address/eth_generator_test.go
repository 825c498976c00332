package address

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/pkg/near"
)

func TestEthImplicitAccount(t *testing.T) {
	// 私钥 = 1 的已知向量
	keyBytes := make([]byte, 32)
	keyBytes[31] = 1
	_, pub := btcec.PrivKeyFromBytes(keyBytes)

	account := EthImplicitAccount(pub)
	assert.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", account)

	raw, err := hex.DecodeString(account[2:])
	require.NoError(t, err)
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", ChecksumAddress(raw))

	// 经过 NEAR 表示往返
	nk := NearSecp256k1Key(pub)
	assert.Len(t, nk.Data, 64)
	fromNear, err := EthImplicitAccountFromNearKey(nk)
	require.NoError(t, err)
	assert.Equal(t, account, fromNear)
	assert.NoError(t, near.ValidateAccountID(fromNear))
}

func TestParseNearSecp256k1_Invalid(t *testing.T) {
	_, err := ParseNearSecp256k1(near.PublicKey{Type: near.ED25519, Data: make([]byte, 32)})
	assert.Error(t, err)

	// 不在曲线上的点
	bad := make([]byte, 64)
	bad[0] = 1
	_, err = ParseNearSecp256k1(near.PublicKey{Type: near.SECP256K1, Data: bad})
	assert.Error(t, err)
}
