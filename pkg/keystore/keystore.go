package keystore

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"

	"relay-core/pkg/crypto_util"
)

// EncryptedKeyJSON 结构参照 Ethereum Keystore V3
// 保存的可以是 session key 私钥 (ed25519 seed) 或本地签名服务的助记词
type EncryptedKeyJSON struct {
	Crypto    CryptoJSON `json:"crypto"`
	Id        string     `json:"id"`
	Kind      string     `json:"kind"`                 // "session_key" / "mnemonic"
	PublicKey string     `json:"public_key,omitempty"` // session key 的 "ed25519:..." 形式, 明文保存方便查看
	Version   int        `json:"version"`
}

type CryptoJSON struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

const (
	KindSessionKey = "session_key"
	KindMnemonic   = "mnemonic"
)

// StandardScryptN 交互式使用; LightScryptN 用于测试
const (
	StandardScryptN = 262144
	LightScryptN    = 4096

	scryptR     = 8
	scryptP     = 1
	scryptDKLen = 32
)

var ErrMACMismatch = errors.New("invalid password or corrupted data (MAC mismatch)")

// Encrypt 使用 scrypt 派生的密钥对 secret 做 AES-256-GCM 加密
func Encrypt(kind string, secret []byte, password string, scryptN int) (*EncryptedKeyJSON, error) {
	salt, err := crypto_util.RandomBytes(32)
	if err != nil {
		return nil, err
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto_util.EncryptAESGCM(derivedKey, secret)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext := sealed[:crypto_util.GCMNonceSize], sealed[crypto_util.GCMNonceSize:]

	// MAC = SHA256(derivedKey || ciphertext)
	mac := crypto_util.SHA256(derivedKey, ciphertext)

	return &EncryptedKeyJSON{
		Version: 3,
		Id:      uuid.NewString(),
		Kind:    kind,
		Crypto: CryptoJSON{
			Cipher:       "aes-256-gcm",
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(nonce)},
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DKLen: scryptDKLen,
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac),
		},
	}, nil
}

// Decrypt 密码错误时返回 ErrMACMismatch
func Decrypt(k *EncryptedKeyJSON, password string) ([]byte, error) {
	if k.Crypto.KDF != "scrypt" || k.Crypto.Cipher != "aes-256-gcm" {
		return nil, fmt.Errorf("unsupported keystore %s/%s", k.Crypto.KDF, k.Crypto.Cipher)
	}

	salt, err := hex.DecodeString(k.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(k.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}
	mac, err := hex.DecodeString(k.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid mac: %w", err)
	}

	p := k.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(mac, crypto_util.SHA256(derivedKey, ciphertext)) != 1 {
		return nil, ErrMACMismatch
	}

	plaintext, err := crypto_util.DecryptAESGCM(derivedKey, append(nonce, ciphertext...))
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// SaveToFile 权限 0600
func (k *EncryptedKeyJSON) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

func LoadFromFile(filename string) (*EncryptedKeyJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k EncryptedKeyJSON
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, err
	}
	return &k, nil
}
