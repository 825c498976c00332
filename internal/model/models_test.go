package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/pkg/codec"
	"relay-core/pkg/near"
)

func TestUsageStatsRecord(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	s := NewUsageStats()
	require.NoError(t, s.Record(UsageDelta{At: day1, Method: "transfer", Contract: "bob", Gas: 5, Deposit: near.NewToken(10)}))
	require.NoError(t, s.Record(UsageDelta{At: day1, Method: "ft_transfer", Contract: "usdc.near", Gas: 7}))
	require.NoError(t, s.Record(UsageDelta{At: day2, Method: "transfer", Contract: "bob", Gas: 1, Deposit: near.NewToken(5)}))

	assert.Equal(t, uint64(3), s.TotalInteractions)
	assert.Equal(t, uint64(2), s.InteractionsPerDay[DayIndex(day1)])
	assert.Equal(t, uint64(1), s.InteractionsPerDay[DayIndex(day2)])
	assert.Equal(t, uint64(2), s.MethodsCalled["transfer"])
	assert.Equal(t, uint64(2), s.ContractsCalled["bob"])
	assert.Equal(t, "13", s.GasUsed.String())
	assert.Equal(t, "15", s.DepositUsed.String())
}

func TestUsageStatsRecord_OverflowLeavesStats(t *testing.T) {
	s := NewUsageStats()
	s.DepositUsed = near.MaxToken()

	err := s.Record(UsageDelta{At: time.Now(), Method: "m", Contract: "c", Deposit: near.NewToken(1)})
	assert.Error(t, err)
	assert.Equal(t, uint64(0), s.TotalInteractions)
	assert.Empty(t, s.MethodsCalled)
}

func TestKeyUsageCBORRoundTrip(t *testing.T) {
	s := NewUsageStats()
	require.NoError(t, s.Record(UsageDelta{At: time.Unix(86400*3, 0), Method: "transfer", Contract: "bob", Gas: 5 * near.TGas, Deposit: near.MustParseNear("1")}))
	ku := KeyUsage{UsageStats: s, Path: "p1", AppID: "a"}

	b1, err := codec.Marshal(ku)
	require.NoError(t, err)
	b2, err := codec.Marshal(ku)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	var back KeyUsage
	require.NoError(t, codec.Unmarshal(b1, &back))
	assert.Equal(t, "p1", back.Path)
	assert.Equal(t, uint64(1), back.UsageStats.InteractionsPerDay[3])
	assert.Equal(t, 0, back.UsageStats.DepositUsed.Cmp(near.MustParseNear("1")))
}
