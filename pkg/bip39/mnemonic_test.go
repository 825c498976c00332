package bip39

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestGenerateMnemonic(t *testing.T) {
	service := NewMnemonicService()

	mnemonic, err := service.GenerateMnemonic(256)
	if err != nil {
		t.Fatalf("生成 24 词助记词失败: %v", err)
	}
	if _, err := service.Seed(mnemonic, ""); err != nil {
		t.Errorf("生成的助记词无效: %v", err)
	}
}

func TestSeed(t *testing.T) {
	service := NewMnemonicService()

	// BIP-39 测试向量
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	expected := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	seed, err := service.Seed(mnemonic, "")
	if err != nil {
		t.Fatalf("测试向量助记词无效: %v", err)
	}
	if got := hex.EncodeToString(seed); got != expected {
		t.Errorf("Seed 不匹配。\n预期: %s\n实际: %s", expected, got)
	}

	if _, err := service.Seed("hello world invalid mnemonic phrase", ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("期望 ErrInvalidMnemonic, 实际: %v", err)
	}
}
