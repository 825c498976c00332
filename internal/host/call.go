package host

import (
	"time"

	"relay-core/pkg/near"
)

// Call 单次请求的执行环境: 调用方身份, 附带金额, 时间戳
type Call struct {
	Caller   string
	Attached near.Token
	At       time.Time
}

// NewCall At 为零值时取当前时间
func NewCall(caller string, attached near.Token) Call {
	return Call{Caller: caller, Attached: attached, At: time.Now()}
}

// WithoutDeposit 附带金额已被消费之后的后续步骤使用
func (c Call) WithoutDeposit() Call {
	c.Attached = near.Token{}
	return c
}
