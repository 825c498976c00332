package near

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"relay-core/pkg/errno"
)

// NearNominationExp 1 NEAR = 10^24 yoctoNEAR
const NearNominationExp = 24

var maxU128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// Token 以 yoctoNEAR 为单位的金额, 取值范围 [0, 2^128-1]
type Token struct {
	v uint256.Int
}

func NewToken(yocto uint64) Token {
	var t Token
	t.v.SetUint64(yocto)
	return t
}

// TokenFromUint256 超出 u128 返回 ErrOverflow
func TokenFromUint256(x *uint256.Int) (Token, error) {
	if x.Gt(maxU128) {
		return Token{}, errno.ErrOverflow
	}
	var t Token
	t.v.Set(x)
	return t, nil
}

// MaxToken u128 上限
func MaxToken() Token {
	var t Token
	t.v.Set(maxU128)
	return t
}

// ParseToken 解析 yocto 十进制字符串
func ParseToken(s string) (Token, error) {
	if s == "" {
		return Token{}, nil
	}
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return Token{}, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("amount %q", s))
	}
	return TokenFromUint256(x)
}

// ParseNear 解析 NEAR 单位的十进制金额, 例如 "0.1" -> 10^23 yocto
func ParseNear(s string) (Token, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Token{}, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("near amount %q", s))
	}
	d = d.Shift(NearNominationExp)
	if d.Sign() < 0 || !d.IsInteger() {
		return Token{}, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("near amount %q", s))
	}
	x, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return Token{}, errno.ErrOverflow
	}
	return TokenFromUint256(x)
}

// MustParseNear 仅用于常量和测试
func MustParseNear(s string) Token {
	t, err := ParseNear(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Token) Add(o Token) (Token, error) {
	var r Token
	if _, overflow := r.v.AddOverflow(&t.v, &o.v); overflow || r.v.Gt(maxU128) {
		return Token{}, errno.ErrOverflow
	}
	return r, nil
}

// Sub 不足时返回 ErrOverflow, 调用方需先比较
func (t Token) Sub(o Token) (Token, error) {
	var r Token
	if _, underflow := r.v.SubOverflow(&t.v, &o.v); underflow {
		return Token{}, errno.ErrOverflow
	}
	return r, nil
}

func (t Token) MulUint64(n uint64) (Token, error) {
	var r Token
	if _, overflow := r.v.MulOverflow(&t.v, uint256.NewInt(n)); overflow || r.v.Gt(maxU128) {
		return Token{}, errno.ErrOverflow
	}
	return r, nil
}

// DivMod 按 d 拆分, 返回商和余数
func (t Token) DivMod(d uint64) (*uint256.Int, uint64) {
	q, m := new(uint256.Int).DivMod(&t.v, uint256.NewInt(d), new(uint256.Int))
	return q, m.Uint64()
}

func (t Token) Cmp(o Token) int {
	return t.v.Cmp(&o.v)
}

func (t Token) IsZero() bool {
	return t.v.IsZero()
}

func (t Token) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&t.v)
}

func (t Token) Big() *big.Int {
	return t.v.ToBig()
}

// String yocto 十进制
func (t Token) String() string {
	return t.v.Dec()
}

// Near 以 NEAR 为单位格式化, 用于日志
func (t Token) Near() string {
	return decimal.NewFromBigInt(t.v.ToBig(), -NearNominationExp).String()
}

// Float64 仅用于监控指标
func (t Token) Float64() float64 {
	f, _ := new(big.Float).SetInt(t.v.ToBig()).Float64()
	return f
}

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errno.ErrInvalidEncoding.WithMessage("amount must be a decimal string")
	}
	v, err := ParseToken(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Token) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.String())
}

func (t *Token) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseToken(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
