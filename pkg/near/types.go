package near

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"relay-core/pkg/errno"
)

// 1 TGas = 10^12 gas
const TGas uint64 = 1_000_000_000_000

// Gas 在 JSON 中以字符串表示 (与 near-sdk 的 Gas 序列化一致)
type Gas uint64

func (g Gas) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(g), 10))
}

func (g *Gas) UnmarshalJSON(data []byte) error {
	v, err := unmarshalU64(data)
	if err != nil {
		return err
	}
	*g = Gas(v)
	return nil
}

// U64 字符串形式的 u64 (json_types::U64)
type U64 uint64

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *U64) UnmarshalJSON(data []byte) error {
	v, err := unmarshalU64(data)
	if err != nil {
		return err
	}
	*u = U64(v)
	return nil
}

func unmarshalU64(data []byte) (uint64, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// 兼容数字形式
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, errno.ErrInvalidEncoding.WithMessage("u64 must be a decimal string")
		}
		return n, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("u64 %q", s))
	}
	return v, nil
}

// ByteArray JSON 编码为数字数组 (Vec<u8> 的 serde 形式), 而不是 base64
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return errno.ErrInvalidEncoding.WithMessage("bytes must be an array of numbers")
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("byte %d out of range", v))
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// ValidateAccountID NEAR 账户名规则: 2-64 字符, 小写字母数字, 以 . - _ 分隔
func ValidateAccountID(id string) error {
	if len(id) < 2 || len(id) > 64 || !accountIDPattern.MatchString(id) {
		return errno.ErrInvalidEncoding.WithMessage(fmt.Sprintf("invalid account id %q", id))
	}
	return nil
}
