package mpc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

// EpsilonDerivationPrefix 与 NEAR MPC 签名网络一致
const EpsilonDerivationPrefix = "near-mpc-recovery v0.1.0 epsilon derivation:"

// DeriveEpsilon epsilon = sha3_256(prefix + predecessor + "," + path) mod n
func DeriveEpsilon(predecessor, path string) *btcec.ModNScalar {
	h := sha3.Sum256([]byte(EpsilonDerivationPrefix + predecessor + "," + path))
	var eps btcec.ModNScalar
	eps.SetBytes(&h)
	return &eps
}

// DerivePublicKey 子公钥 = root + epsilon·G
func DerivePublicKey(root *btcec.PublicKey, predecessor, path string) *btcec.PublicKey {
	eps := DeriveEpsilon(predecessor, path)

	var epsG, rootJ, sum btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(eps, &epsG)
	root.AsJacobian(&rootJ)
	btcec.AddNonConst(&epsG, &rootJ, &sum)
	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// DerivePrivateKey 子私钥 = root + epsilon (mod n), 仅本地签名器使用
func DerivePrivateKey(root *btcec.PrivateKey, predecessor, path string) *btcec.PrivateKey {
	var k btcec.ModNScalar
	k.Set(&root.Key)
	k.Add(DeriveEpsilon(predecessor, path))

	b := k.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv
}
