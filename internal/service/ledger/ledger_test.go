package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/internal/host"
	"relay-core/internal/store"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

func newLedger(t *testing.T) (*Ledger, *store.Store) {
	s, err := store.Open(context.Background(), store.NewMemoryBackend())
	require.NoError(t, err)
	return New(s), s
}

func TestDepositAndBalance(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	bal, err := l.BalanceOf(ctx, "a")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = l.Deposit(ctx, host.NewCall("alice", near.MustParseNear("5")), "a")
	require.NoError(t, err)
	_, err = l.Deposit(ctx, host.NewCall("bob", near.MustParseNear("2")), "a")
	require.NoError(t, err)

	bal, err = l.BalanceOf(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "7", bal.Near())
}

func TestDepositOverflow(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	_, err := l.Deposit(ctx, host.NewCall("alice", near.MaxToken()), "a")
	require.NoError(t, err)

	_, err = l.Deposit(ctx, host.NewCall("alice", near.NewToken(1)), "a")
	assert.True(t, errors.Is(err, errno.ErrOverflow))

	bal, err := l.BalanceOf(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Cmp(near.MaxToken()))
}

func TestDebit(t *testing.T) {
	tests := []struct {
		name     string
		balance  string
		attached string
		amount   string
		wantErr  error
		wantLeft string
	}{
		{"足额扣减", "5", "0", "1", nil, "4"},
		{"全部扣完", "1", "0", "1", nil, "0"},
		{"余额不足", "1", "0", "2", errno.ErrInsufficientBalance, "1"},
		{"同时充值并扣减", "1", "2", "3", nil, "0"},
		{"附带金额仍不够", "0", "1", "2", errno.ErrInsufficientBalance, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, s := newLedger(t)

			if tt.balance != "0" {
				_, err := l.Deposit(ctx, host.NewCall("x", near.MustParseNear(tt.balance)), "a")
				require.NoError(t, err)
				require.NoError(t, s.Flush(ctx))
			}

			_, err := l.Debit(ctx, host.NewCall("x", near.MustParseNear(tt.attached)), near.MustParseNear(tt.amount), "a")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.False(t, s.Dirty(), "失败的扣减不应产生写入")
			} else {
				require.NoError(t, err)
			}

			bal, err := l.BalanceOf(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, bal.Near())
		})
	}
}

// 任意 deposit/debit 序列下, 失败的 debit 不改变余额, 成功的 debit 精确扣减
func TestDebitSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		l, _ := newLedger(t)
		var model uint64

		for step := 0; step < 40; step++ {
			attached := uint64(rng.Intn(5))
			amount := uint64(rng.Intn(10))

			if rng.Intn(2) == 0 {
				_, err := l.Deposit(ctx, host.NewCall("x", near.NewToken(attached)), "a")
				require.NoError(t, err)
				model += attached
			} else {
				_, err := l.Debit(ctx, host.NewCall("x", near.NewToken(attached)), near.NewToken(amount), "a")
				if model+attached >= amount {
					require.NoError(t, err)
					model = model + attached - amount
				} else {
					require.True(t, errors.Is(err, errno.ErrInsufficientBalance))
				}
			}

			bal, err := l.BalanceOf(ctx, "a")
			require.NoError(t, err)
			require.Equal(t, 0, bal.Cmp(near.NewToken(model)), "round %d step %d", round, step)
		}
	}
}
