package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"relay-core/internal/host"
	"relay-core/internal/store"
	"relay-core/pkg/errno"
	"relay-core/pkg/logger"
	"relay-core/pkg/near"
)

// Ledger 每个 app 的预付余额
type Ledger struct {
	balances *store.LookupMap[string, near.Token]
}

func New(s *store.Store) *Ledger {
	return &Ledger{
		balances: store.NewLookupMap[string, near.Token](s, "a:", store.StringKey),
	}
}

// BalanceOf 不存在时为 0
func (l *Ledger) BalanceOf(ctx context.Context, appID string) (near.Token, error) {
	bal, _, err := l.balances.Get(ctx, appID)
	return bal, err
}

// Deposit 将附带金额记入 app 余额
func (l *Ledger) Deposit(ctx context.Context, call host.Call, appID string) (near.Token, error) {
	current, err := l.BalanceOf(ctx, appID)
	if err != nil {
		return near.Token{}, err
	}

	next, err := current.Add(call.Attached)
	if err != nil {
		return near.Token{}, fmt.Errorf("deposit to %s: %w", appID, err)
	}

	if _, _, err := l.balances.Insert(ctx, appID, next); err != nil {
		return near.Token{}, err
	}

	logger.Info("App 充值",
		zap.String("app_id", appID),
		zap.String("deposit", call.Attached.String()),
		zap.String("balance", next.String()),
	)
	return next, nil
}

// Debit 先并入本次调用附带的金额, 再检查余额, 最后扣减
// 余额不足时不修改任何状态
func (l *Ledger) Debit(ctx context.Context, call host.Call, amount near.Token, appID string) (near.Token, error) {
	current, err := l.BalanceOf(ctx, appID)
	if err != nil {
		return near.Token{}, err
	}

	merged, err := current.Add(call.Attached)
	if err != nil {
		return near.Token{}, fmt.Errorf("debit %s: %w", appID, err)
	}

	if merged.Cmp(amount) < 0 {
		return near.Token{}, errno.ErrInsufficientBalance.WithMessage(
			fmt.Sprintf("app %s has %s, needs %s", appID, merged, amount))
	}

	next, err := merged.Sub(amount)
	if err != nil {
		return near.Token{}, err
	}

	if _, _, err := l.balances.Insert(ctx, appID, next); err != nil {
		return near.Token{}, err
	}
	return next, nil
}
