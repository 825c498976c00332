package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/internal/handler"
	"relay-core/internal/handler/response"
	"relay-core/internal/model"
	"relay-core/internal/service/auth"
	"relay-core/internal/service/compiler"
	"relay-core/internal/service/ledger"
	"relay-core/internal/service/mq"
	"relay-core/internal/service/orchestrator"
	"relay-core/internal/service/registry"
	"relay-core/internal/service/relay"
	"relay-core/internal/store"
	"relay-core/internal/worker"
	"relay-core/pkg/address"
	"relay-core/pkg/cache"
	"relay-core/pkg/errno"
	"relay-core/pkg/mpc"
	"relay-core/pkg/near"
)

const (
	oracle = "oracle.near"
	token  = "oracle-token"
)

type keySigner struct{ priv *btcec.PrivateKey }

func (s keySigner) Sign(_ context.Context, req mpc.SignRequest) (*mpc.SignResult, error) {
	return mpc.SignDigest(s.priv, req.Payload)
}

type recordingRelayer struct{ wallets []string }

func (r *recordingRelayer) Execute(_ context.Context, wallet, _, _ string, _ near.Token) (string, error) {
	r.wallets = append(r.wallets, wallet)
	return "0xhash", nil
}

func (r *recordingRelayer) Broadcast(context.Context, string) (string, error) { return "hash", nil }

type noopTransferer struct{}

func (noopTransferer) ScheduleTransfer(context.Context, string, near.Token, string) error { return nil }

func newTestServer(t *testing.T) (*gin.Engine, *btcec.PrivateKey, *recordingRelayer) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s, err := store.Open(ctx, store.NewMemoryBackend())
	require.NoError(t, err)
	c, err := compiler.New(compiler.NearEVMChainID)
	require.NoError(t, err)
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	relayer := &recordingRelayer{}

	orch := orchestrator.New(c, keySigner{priv}, relayer, mq.NewMemoryBroker(), cache.NewMemoryCache(time.Minute, time.Minute))
	orch.UseScheduler(worker.NewInlineScheduler(orch, nil, false))

	svc := relay.New(relay.Deps{
		Store:        s,
		Registry:     registry.New(s, registry.Options{Oracle: oracle}, nil, noopTransferer{}, nil),
		Ledger:       ledger.New(s),
		Compiler:     c,
		Orchestrator: orch,
	})

	r := NewHTTPRouter(RouterConfig{OracleAccount: oracle, OracleToken: token}, handler.NewRelayHandler(svc))
	return r, priv, relayer
}

func call(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) response.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestServer(t)
	resp := call(t, r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, errno.OK.Code, resp.Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestRelayFlowOverHTTP(t *testing.T) {
	r, priv, relayer := newTestServer(t)
	oracleAuth := map[string]string{"Authorization": "Bearer " + token}

	// 1. oracle 注册 bundle 和 session key
	mpcKey := address.NearSecp256k1Key(priv.PubKey())
	resp := call(t, r, http.MethodPost, "/api/v1/bundles", map[string]any{"path": "p1", "mpc_key": mpcKey.String()}, oracleAuth)
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)
	wallet := resp.Data.(map[string]any)["eth_address"].(string)
	assert.True(t, strings.HasPrefix(wallet, "0x"))

	pub, sk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pk, err := near.NewPublicKey(near.ED25519, pub)
	require.NoError(t, err)
	resp = call(t, r, http.MethodPost, "/api/v1/session_keys", map[string]any{"public_key": pk.String(), "path": "p1", "app_id": "a"}, oracleAuth)
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)

	// 非 oracle 调用被拒绝
	resp = call(t, r, http.MethodPost, "/api/v1/session_keys", map[string]any{"public_key": pk.String(), "path": "p9", "app_id": "a"},
		map[string]string{handler.HeaderCallerID: "mallory.near"})
	assert.Equal(t, errno.ErrUnauthorized.Code, resp.Code)

	// 2. app 充值 5 NEAR, 附带金额只认 token
	resp = call(t, r, http.MethodPost, "/api/v1/deposit", map[string]any{"app_id": "a"},
		map[string]string{"Authorization": "Bearer " + token, handler.HeaderAttachedDeposit: near.MustParseNear("5").String()})
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)

	// 3. 执行转账
	payload := model.Payload{Action: model.Action{Transfer: &model.TransferAction{ReceiverID: "bob", Amount: near.MustParseNear("1")}}}
	sig, err := auth.Sign(payload, sk)
	require.NoError(t, err)
	resp = call(t, r, http.MethodPost, "/api/v1/execute", map[string]any{
		"signature":   base64.StdEncoding.EncodeToString(sig),
		"payload":     payload,
		"session_key": pk.String(),
		"app_id":      "a",
	}, map[string]string{handler.HeaderCallerID: "alice.near"})
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)
	actionID := resp.Data.(map[string]any)["action_id"].(string)
	assert.Equal(t, []string{wallet}, relayer.wallets)

	// 4. 视图
	resp = call(t, r, http.MethodGet, "/api/v1/balances/a", nil, nil)
	assert.Equal(t, near.MustParseNear("4").String(), resp.Data.(map[string]any)["balance"])

	resp = call(t, r, http.MethodGet, "/api/v1/key_usage/"+pk.String(), nil, nil)
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)
	stats := resp.Data.(map[string]any)["usage_stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total_interactions"])

	resp = call(t, r, http.MethodGet, "/api/v1/actions/"+actionID, nil, nil)
	require.Equal(t, errno.OK.Code, resp.Code, resp.Message)
	assert.Equal(t, "relayed", resp.Data.(map[string]any)["status"])

	resp = call(t, r, http.MethodGet, "/api/v1/bundles/p1", nil, nil)
	assert.Equal(t, wallet, resp.Data.(map[string]any)["eth_address"])
}

func TestCallerHeadersCannotEscalate(t *testing.T) {
	r, priv, _ := newTestServer(t)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pk, err := near.NewPublicKey(near.ED25519, pub)
	require.NoError(t, err)

	t.Run("X-Caller-Id 冒充 oracle 注册 session key", func(t *testing.T) {
		resp := call(t, r, http.MethodPost, "/api/v1/session_keys", map[string]any{"public_key": pk.String(), "path": "p1", "app_id": "a"},
			map[string]string{handler.HeaderCallerID: oracle})
		assert.Equal(t, errno.ErrUnauthorized.Code, resp.Code)

		resp = call(t, r, http.MethodGet, "/api/v1/key_usage/"+pk.String(), nil, nil)
		assert.Equal(t, errno.ErrKeyNotRecognized.Code, resp.Code)
	})

	t.Run("X-Caller-Id 冒充 oracle 注册 bundle", func(t *testing.T) {
		mpcKey := address.NearSecp256k1Key(priv.PubKey())
		resp := call(t, r, http.MethodPost, "/api/v1/bundles", map[string]any{"path": "p2", "mpc_key": mpcKey.String()},
			map[string]string{handler.HeaderCallerID: oracle})
		assert.Equal(t, errno.ErrUnauthorized.Code, resp.Code)

		resp = call(t, r, http.MethodGet, "/api/v1/bundles/p2", nil, nil)
		assert.Equal(t, errno.ErrBundleNotFound.Code, resp.Code)
	})

	t.Run("匿名附带金额不能充值", func(t *testing.T) {
		resp := call(t, r, http.MethodPost, "/api/v1/deposit", map[string]any{"app_id": "a"},
			map[string]string{handler.HeaderCallerID: "mallory.near", handler.HeaderAttachedDeposit: near.MustParseNear("1000").String()})
		assert.Equal(t, errno.ErrUnauthorized.Code, resp.Code)

		resp = call(t, r, http.MethodGet, "/api/v1/balances/a", nil, nil)
		require.Equal(t, errno.OK.Code, resp.Code, resp.Message)
		assert.Equal(t, "0", resp.Data.(map[string]any)["balance"])
	})
}
