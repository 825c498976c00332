package mpc

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedKeysMatch(t *testing.T) {
	root, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	for _, path := range []string{"p1", "google-oauth|1234", ""} {
		t.Run(path, func(t *testing.T) {
			priv := DerivePrivateKey(root, "relay.testnet", path)
			pub := DerivePublicKey(root.PubKey(), "relay.testnet", path)
			assert.True(t, priv.PubKey().IsEqual(pub), "私钥推导与公钥推导不一致")
		})
	}

	a := DerivePublicKey(root.PubKey(), "relay.testnet", "p1")
	b := DerivePublicKey(root.PubKey(), "other.testnet", "p1")
	assert.False(t, a.IsEqual(b))
}

func TestSignDigest(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	digest := [32]byte{1, 2, 3}

	res, err := SignDigest(priv, digest)
	require.NoError(t, err)

	r, err := hex.DecodeString(res.BigR.AffinePoint)
	require.NoError(t, err)
	require.Len(t, r, 33)
	s, err := hex.DecodeString(res.S.Scalar)
	require.NoError(t, err)
	require.Len(t, s, 32)

	sig := append(append(r[1:], s...), res.RecoveryID)
	recovered, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.ToECDSA().PublicKey), crypto.PubkeyToAddress(*recovered))
}

func TestSignRequestJSON(t *testing.T) {
	req := SignRequest{Payload: [32]byte{255}, Path: "p1"}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded struct {
		Request struct {
			Payload    []int  `json:"payload"`
			Path       string `json:"path"`
			KeyVersion uint32 `json:"key_version"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Request.Payload, 32)
	assert.Equal(t, 255, decoded.Request.Payload[0])
	assert.Equal(t, "p1", decoded.Request.Path)
}

func TestSignRequestJSON_RoundTrip(t *testing.T) {
	req := SignRequest{Payload: [32]byte{1, 2, 3, 31: 9}, Path: "p1", KeyVersion: 0}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var back SignRequest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, req, back)

	err = json.Unmarshal([]byte(`{"request":{"payload":[1,2],"path":"p1","key_version":0}}`), &back)
	assert.Error(t, err)
}
