package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

type relayerService struct {
	calls     []FunctionCall
	broadcast []string
	transfers map[string]near.Token
	fail      bool
}

func (s *relayerService) FunctionCall(call FunctionCall) (string, error) {
	if s.fail {
		return "", errors.New("wallet contract panicked")
	}
	s.calls = append(s.calls, call)
	return "tx1", nil
}

func (s *relayerService) BroadcastTxAsync(signed string) (string, error) {
	s.broadcast = append(s.broadcast, signed)
	return "tx2", nil
}

func (s *relayerService) Transfer(to string, amount near.Token) (string, error) {
	s.transfers[to] = amount
	return "tx3", nil
}

func newClient(t *testing.T, svc *relayerService) *Client {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("relayer", svc))
	t.Cleanup(srv.Stop)
	c := New(rpc.DialInProc(srv))
	t.Cleanup(c.Close)
	return c
}

func TestExecute(t *testing.T) {
	svc := &relayerService{transfers: map[string]near.Token{}}
	c := newClient(t, svc)

	hash, err := c.Execute(context.Background(), "0xwallet", "bob", "AAEC", near.MustParseNear("1"))
	require.NoError(t, err)
	assert.Equal(t, "tx1", hash)

	require.Len(t, svc.calls, 1)
	call := svc.calls[0]
	assert.Equal(t, "0xwallet", call.ReceiverID)
	assert.Equal(t, ExecuteMethod, call.MethodName)
	assert.Equal(t, uint64(ExecuteGas), uint64(call.Gas))
	assert.Equal(t, near.MustParseNear("1").String(), call.Deposit.String())

	var args ExecuteArgs
	require.NoError(t, json.Unmarshal(call.Args, &args))
	assert.Equal(t, ExecuteArgs{Target: "bob", TxBytesB64: "AAEC"}, args)
}

func TestBroadcastAndTransfer(t *testing.T) {
	svc := &relayerService{transfers: map[string]near.Token{}}
	c := newClient(t, svc)
	ctx := context.Background()

	_, err := c.Broadcast(ctx, "c2lnbmVk")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2lnbmVk"}, svc.broadcast)

	_, err = c.Transfer(ctx, "0xabc", near.MustParseNear("0.1"))
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000000000", svc.transfers["0xabc"].String())
}

func TestExecute_Failed(t *testing.T) {
	c := newClient(t, &relayerService{fail: true})
	_, err := c.Execute(context.Background(), "0xwallet", "bob", "AAEC", near.Token{})
	assert.True(t, errors.Is(err, errno.ErrRelayFailed))
}
