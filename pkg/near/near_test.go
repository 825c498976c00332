package near

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/pkg/errno"
)

func TestParseNear(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000000000"},
		{"0.1", "100000000000000000000000"},
		{"5", "5000000000000000000000000"},
		{"0.000000000000000000000001", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNear(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.in, got.Near())
		})
	}

	_, err := ParseNear("0.0000000000000000000000001")
	assert.True(t, errors.Is(err, errno.ErrInvalidEncoding))
	_, err = ParseNear("-1")
	assert.True(t, errors.Is(err, errno.ErrInvalidEncoding))
}

func TestTokenOverflow(t *testing.T) {
	max := MaxToken()
	_, err := max.Add(NewToken(1))
	assert.True(t, errors.Is(err, errno.ErrOverflow))

	sum, err := max.Sub(NewToken(1))
	require.NoError(t, err)
	back, err := sum.Add(NewToken(1))
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(max))

	_, err = NewToken(1).Sub(NewToken(2))
	assert.True(t, errors.Is(err, errno.ErrOverflow))

	_, err = ParseToken("340282366920938463463374607431768211456") // 2^128
	assert.True(t, errors.Is(err, errno.ErrOverflow))
}

func TestTokenDivModRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "999999", "1000000", "1000001", "340282366920938463463374607431768211455"} {
		v, err := ParseToken(s)
		require.NoError(t, err)

		q, r := v.DivMod(1_000_000)
		assert.Less(t, r, uint64(1_000_000))

		back := q.Clone()
		back.Mul(back, uint256.NewInt(1_000_000))
		back.Add(back, uint256.NewInt(r))
		assert.Equal(t, s, back.Dec(), "value %s", s)
	}
}

func TestTokenJSON(t *testing.T) {
	v := MustParseNear("1.5")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"1500000000000000000000000"`, string(data))

	var back Token
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 0, back.Cmp(v))

	assert.Error(t, json.Unmarshal([]byte(`15`), &back))
}

func TestParsePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := "ed25519:" + base58.Encode(pub)
	pk, err := ParsePublicKey(s)
	require.NoError(t, err)
	assert.Equal(t, ED25519, pk.Type)
	assert.Equal(t, []byte(pub), pk.Data)
	assert.Equal(t, s, pk.String())
	assert.Len(t, pk.Bytes(), 33)
	assert.Equal(t, byte(0), pk.Bytes()[0])

	_, err = ParsePublicKey("ed25519:" + base58.Encode(pub[:31]))
	assert.True(t, errors.Is(err, errno.ErrInvalidEncoding))

	_, err = ParsePublicKey("rsa:" + base58.Encode(pub))
	assert.True(t, errors.Is(err, errno.ErrInvalidEncoding))

	secp := make([]byte, 64)
	secp[0] = 7
	pk, err = ParsePublicKey("secp256k1:" + base58.Encode(secp))
	require.NoError(t, err)
	assert.Equal(t, SECP256K1, pk.Type)
}

func TestByteArrayJSON(t *testing.T) {
	data, err := json.Marshal(ByteArray{1, 2, 255})
	require.NoError(t, err)
	assert.Equal(t, `[1,2,255]`, string(data))

	var b ByteArray
	require.NoError(t, json.Unmarshal([]byte(`[123,34]`), &b))
	assert.Equal(t, ByteArray{123, 34}, b)
	assert.Error(t, json.Unmarshal([]byte(`[256]`), &b))
}

func TestGasAndU64JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Gas   Gas `json:"gas"`
		Nonce U64 `json:"nonce"`
	}{Gas(30 * TGas), 7})
	require.NoError(t, err)
	assert.Equal(t, `{"gas":"30000000000000","nonce":"7"}`, string(data))

	var g Gas
	require.NoError(t, json.Unmarshal([]byte(`"5000000000000"`), &g))
	assert.Equal(t, Gas(5*TGas), g)
	require.NoError(t, json.Unmarshal([]byte(`42`), &g))
	assert.Equal(t, Gas(42), g)
}

func TestValidateAccountID(t *testing.T) {
	for _, ok := range []string{"bob", "bob.near", "app-1.testnet", "0x2ab0c5d3f8e4a7b6c9d0e1f2a3b4c5d6e7f8a9b0"} {
		assert.NoError(t, ValidateAccountID(ok), ok)
	}
	for _, bad := range []string{"", "a", "Bob", "bob..near", "-bob", "bob_"} {
		assert.Error(t, ValidateAccountID(bad), bad)
	}
}

func TestTransactionEncode(t *testing.T) {
	pk, err := NewPublicKey(ED25519, make([]byte, 32))
	require.NoError(t, err)

	tx := &Transaction{
		SignerID:   "alice",
		PublicKey:  pk,
		Nonce:      9,
		ReceiverID: "bob",
		Actions:    []Action{Transfer{Deposit: NewToken(258)}},
	}
	b := tx.Encode()

	// signer_id
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, "alice", string(b[4:9]))
	// public key: 1 + 32
	assert.Equal(t, byte(0), b[9])
	off := 9 + 33
	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(b[off:off+8]))
	off += 8
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[off:off+4]))
	off += 4 + 3 + 32
	// actions: len=1, tag=3, u128 LE
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[off:off+4]))
	off += 4
	assert.Equal(t, byte(3), b[off])
	assert.Equal(t, []byte{2, 1}, b[off+1:off+3])
	assert.Len(t, b, off+1+16)

	h1 := tx.Hash()
	tx.Nonce++
	assert.NotEqual(t, h1, tx.Hash())

	_, err = EncodeSigned(b, SECP256K1, make([]byte, 64))
	assert.True(t, errors.Is(err, errno.ErrInvalidEncoding))
	signed, err := EncodeSigned(b, SECP256K1, make([]byte, 65))
	require.NoError(t, err)
	assert.Len(t, signed, len(b)+66)
}
