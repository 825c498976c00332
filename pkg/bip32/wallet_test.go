package bip32

import (
	"encoding/hex"
	"errors"
	"testing"

	"relay-core/pkg/bip39"
)

func TestRootKey(t *testing.T) {
	seed, err := bip39.NewMnemonicService().Seed(
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
	if err != nil {
		t.Fatalf("生成种子失败: %v", err)
	}

	wallet, err := NewMasterKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	k1, err := wallet.RootKey(DefaultRootPath)
	if err != nil {
		t.Fatalf("派生路径 %s 失败: %v", DefaultRootPath, err)
	}
	k2, err := wallet.RootKey("m/44h/397h/0h")
	if err != nil {
		t.Fatalf("派生 h 形式路径失败: %v", err)
	}
	if hex.EncodeToString(k1.Serialize()) != hex.EncodeToString(k2.Serialize()) {
		t.Errorf("' 与 h 两种写法应得到同一密钥")
	}

	k3, err := wallet.RootKey("m/44'/397'/1'")
	if err != nil {
		t.Fatalf("派生失败: %v", err)
	}
	if k3.Key.Equals(&k1.Key) {
		t.Errorf("不同路径不应得到相同密钥")
	}
}

func TestDerivePath_Invalid(t *testing.T) {
	seed, _ := hex.DecodeString("fffcf9f6da3247d8a846f4b6113e6173")
	wallet, err := NewMasterKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	if _, err := wallet.DerivePath("m/abc"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("期望 ErrInvalidPath, 实际: %v", err)
	}
	if _, err := NewMasterKeyFromSeed([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("期望 ErrInvalidSeed, 实际: %v", err)
	}
}
