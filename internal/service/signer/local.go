package signer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"relay-core/pkg/address"
	"relay-core/pkg/bip32"
	"relay-core/pkg/bip39"
	"relay-core/pkg/errno"
	"relay-core/pkg/mpc"
	"relay-core/pkg/near"
)

// LocalSigner 开发环境使用: 根私钥由助记词派生, 子密钥推导规则与 MPC 网络相同
type LocalSigner struct {
	root        *btcec.PrivateKey
	predecessor string
}

func NewLocalSigner(mnemonic, predecessor string) (*LocalSigner, error) {
	seed, err := bip39.NewMnemonicService().Seed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	w, err := bip32.NewMasterKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	root, err := w.RootKey(bip32.DefaultRootPath)
	if err != nil {
		return nil, fmt.Errorf("派生根密钥失败: %w", err)
	}
	return &LocalSigner{root: root, predecessor: predecessor}, nil
}

func (s *LocalSigner) Sign(ctx context.Context, req mpc.SignRequest) (*mpc.SignResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errno.ErrSigningFailed.WithMessage(err.Error())
	}
	child := mpc.DerivePrivateKey(s.root, s.predecessor, req.Path)
	res, err := mpc.SignDigest(child, req.Payload)
	if err != nil {
		return nil, errno.ErrSigningFailed.WithMessage(err.Error())
	}
	return res, nil
}

func (s *LocalSigner) DerivedPublicKey(_ context.Context, path string) (near.PublicKey, error) {
	child := mpc.DerivePublicKey(s.root.PubKey(), s.predecessor, path)
	return address.NearSecp256k1Key(child), nil
}
