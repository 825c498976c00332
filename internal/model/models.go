package model

import (
	"time"

	"relay-core/pkg/near"
)

// Bundle 用户 path 对应的目标链钱包
type Bundle struct {
	SigningKey      near.PublicKey `json:"mpc_key"`     // 派生出的 secp256k1 公钥
	Path            string         `json:"path"`        // 签名服务的派生路径
	ExternalAccount string         `json:"eth_address"` // 该 bundle 控制的目标链账户
}

// KeyUsage 一个活跃 session key 的归属和用量
type KeyUsage struct {
	UsageStats UsageStats `json:"usage_stats"`
	Path       string     `json:"path"`
	AppID      string     `json:"app_id,omitempty"`
}

// UsageStats 只增不减的计数器
type UsageStats struct {
	TotalInteractions  uint64            `json:"total_interactions"`
	InteractionsPerDay map[uint64]uint64 `json:"interactions_per_day"` // 日序号 (unix 秒 / 86400) -> 次数
	MethodsCalled      map[string]uint64 `json:"methods_called"`
	ContractsCalled    map[string]uint64 `json:"contracts_called"`
	GasUsed            near.Token        `json:"gas_used"`
	DepositUsed        near.Token        `json:"deposit_used"`
}

func NewUsageStats() UsageStats {
	return UsageStats{
		InteractionsPerDay: map[uint64]uint64{},
		MethodsCalled:      map[string]uint64{},
		ContractsCalled:    map[string]uint64{},
	}
}

// UsageDelta 一次成功动作的用量
type UsageDelta struct {
	At       time.Time
	Method   string
	Contract string
	Gas      uint64
	Deposit  near.Token
}

// DayIndex unix 秒 / 86400
func DayIndex(t time.Time) uint64 {
	return uint64(t.Unix() / 86400)
}

// Record 累加一次用量, 溢出时不修改任何字段
func (s *UsageStats) Record(d UsageDelta) error {
	gas, err := s.GasUsed.Add(near.NewToken(d.Gas))
	if err != nil {
		return err
	}
	deposit, err := s.DepositUsed.Add(d.Deposit)
	if err != nil {
		return err
	}

	if s.InteractionsPerDay == nil {
		s.InteractionsPerDay = map[uint64]uint64{}
	}
	if s.MethodsCalled == nil {
		s.MethodsCalled = map[string]uint64{}
	}
	if s.ContractsCalled == nil {
		s.ContractsCalled = map[string]uint64{}
	}

	s.TotalInteractions++
	s.InteractionsPerDay[DayIndex(d.At)]++
	s.MethodsCalled[d.Method]++
	s.ContractsCalled[d.Contract]++
	s.GasUsed = gas
	s.DepositUsed = deposit
	return nil
}
