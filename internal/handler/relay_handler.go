package handler

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/gin-gonic/gin"

	"relay-core/internal/event"
	"relay-core/internal/handler/request"
	"relay-core/internal/handler/response"
	"relay-core/internal/host"
	"relay-core/internal/model"
	"relay-core/internal/service/registry"
	"relay-core/internal/service/relay"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
	"relay-core/pkg/validator"
)

// RelayService relay.Service 暴露给 HTTP 的操作
type RelayService interface {
	Deposit(ctx context.Context, call host.Call, appID string) (near.Token, error)
	Execute(ctx context.Context, call host.Call, req relay.ExecuteRequest) (*relay.ExecuteResult, error)
	ExecuteNative(ctx context.Context, call host.Call, req relay.ExecuteNativeRequest) (*relay.ExecuteResult, error)
	RegisterBundle(ctx context.Context, call host.Call, req registry.BundleRequest) (*model.Bundle, error)
	RegisterSessionKey(ctx context.Context, call host.Call, pk near.PublicKey, path, appID string) (*model.KeyUsage, error)
	KeyUsage(ctx context.Context, pk near.PublicKey) (*model.KeyUsage, bool, error)
	Bundle(ctx context.Context, path string) (*model.Bundle, bool, error)
	Balance(ctx context.Context, appID string) (near.Token, error)
	ActionStatus(ctx context.Context, id string) (*event.ActionEvent, bool)
}

type RelayHandler struct {
	svc RelayService
}

func NewRelayHandler(svc RelayService) *RelayHandler {
	return &RelayHandler{svc: svc}
}

// bindError 解码阶段的 errno (例如金额格式) 原样返回, 其余按参数校验错误处理
func bindError(err error) error {
	var typed errno.Errno
	if errors.As(err, &typed) {
		return err
	}
	return errno.ErrBind.WithMessage(validator.GetErrorMsg(err))
}

// Deposit 为 app 充值
// @Summary App 充值
// @Description X-Attached-Deposit 中的金额记入 app 余额, 非零金额需要 Bearer token
// @Tags Ledger
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer <oracle token>"
// @Param X-Attached-Deposit header string true "yocto"
// @Param request body request.DepositRequest true "Deposit Request"
// @Success 200 {object} response.Response
// @Router /api/v1/deposit [post]
func (h *RelayHandler) Deposit(c *gin.Context) {
	var req request.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	balance, err := h.svc.Deposit(c.Request.Context(), CallFrom(c), req.AppID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"app_id": req.AppID, "balance": balance})
}

// Execute 提交 session key 签名的动作
// @Summary 执行动作 (EVM)
// @Description 验签, 扣款, 编译 EIP-1559 交易并请求门限签名; 签名和转发异步完成
// @Tags Relay
// @Accept json
// @Produce json
// @Param request body request.ExecuteRequest true "Execute Request"
// @Success 200 {object} response.Response
// @Router /api/v1/execute [post]
func (h *RelayHandler) Execute(c *gin.Context) {
	var req request.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	sig, pk, err := decodeAuth(req.Signature, req.SessionKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Execute(c.Request.Context(), CallFrom(c), relay.ExecuteRequest{
		Signature:  sig,
		Payload:    req.Payload,
		SessionKey: pk,
		AppID:      req.AppID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ExecuteNative 原生 NEAR 交易变体
// @Summary 执行动作 (原生)
// @Tags Relay
// @Accept json
// @Produce json
// @Param request body request.ExecuteNativeRequest true "Execute Native Request"
// @Success 200 {object} response.Response
// @Router /api/v1/execute_native [post]
func (h *RelayHandler) ExecuteNative(c *gin.Context) {
	var req request.ExecuteNativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	sig, pk, err := decodeAuth(req.Signature, req.SessionKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.ExecuteNative(c.Request.Context(), CallFrom(c), relay.ExecuteNativeRequest{
		Signature:  sig,
		Payload:    req.Payload,
		SessionKey: pk,
		AppID:      req.AppID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func decodeAuth(signature, sessionKey string) ([]byte, near.PublicKey, error) {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return nil, near.PublicKey{}, errno.ErrInvalidSignature.WithMessage("signature must be base64")
	}
	pk, err := near.ParsePublicKey(sessionKey)
	if err != nil {
		return nil, near.PublicKey{}, err
	}
	return sig, pk, nil
}

// RegisterBundle oracle 激活 path
// @Summary 注册 Bundle
// @Tags Oracle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.RegisterBundleRequest true "Bundle Request"
// @Success 200 {object} response.Response
// @Router /api/v1/bundles [post]
func (h *RelayHandler) RegisterBundle(c *gin.Context) {
	var req request.RegisterBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	br := registry.BundleRequest{Path: req.Path, ExternalAccount: req.ExternalAccount}
	if req.SigningKey != "" {
		pk, err := near.ParsePublicKey(req.SigningKey)
		if err != nil {
			response.Error(c, err)
			return
		}
		br.SigningKey = &pk
	}

	bundle, err := h.svc.RegisterBundle(c.Request.Context(), CallFrom(c), br)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bundle)
}

// RegisterSessionKey oracle 绑定 session key
// @Summary 注册 Session Key
// @Description 同一 (path, app_id) 已有 key 时为轮换
// @Tags Oracle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.RegisterSessionKeyRequest true "Session Key Request"
// @Success 200 {object} response.Response
// @Router /api/v1/session_keys [post]
func (h *RelayHandler) RegisterSessionKey(c *gin.Context) {
	var req request.RegisterSessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	pk, err := near.ParsePublicKey(req.PublicKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	usage, err := h.svc.RegisterSessionKey(c.Request.Context(), CallFrom(c), pk, req.Path, req.AppID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, usage)
}

// GetKeyUsage
// @Summary 查询 session key 用量
// @Tags View
// @Produce json
// @Param public_key path string true "ed25519:..."
// @Success 200 {object} response.Response
// @Router /api/v1/key_usage/{public_key} [get]
func (h *RelayHandler) GetKeyUsage(c *gin.Context) {
	pk, err := near.ParsePublicKey(c.Param("public_key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	usage, ok, err := h.svc.KeyUsage(c.Request.Context(), pk)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, errno.ErrKeyNotRecognized)
		return
	}
	response.Success(c, usage)
}

// GetBundle
// @Summary 查询 Bundle
// @Tags View
// @Produce json
// @Param path path string true "derivation path"
// @Success 200 {object} response.Response
// @Router /api/v1/bundles/{path} [get]
func (h *RelayHandler) GetBundle(c *gin.Context) {
	bundle, ok, err := h.svc.Bundle(c.Request.Context(), c.Param("path"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, errno.ErrBundleNotFound)
		return
	}
	response.Success(c, bundle)
}

// GetBalance 不存在的 app 余额为 0
// @Summary 查询 App 余额
// @Tags View
// @Produce json
// @Param app_id path string true "app id"
// @Success 200 {object} response.Response
// @Router /api/v1/balances/{app_id} [get]
func (h *RelayHandler) GetBalance(c *gin.Context) {
	appID := c.Param("app_id")
	balance, err := h.svc.Balance(c.Request.Context(), appID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"app_id": appID, "balance": balance, "near": balance.Near()})
}

// GetAction
// @Summary 查询动作的签名流程状态
// @Tags View
// @Produce json
// @Param id path string true "action id"
// @Success 200 {object} response.Response
// @Router /api/v1/actions/{id} [get]
func (h *RelayHandler) GetAction(c *gin.Context) {
	ev, ok := h.svc.ActionStatus(c.Request.Context(), c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrNotFound)
		return
	}
	response.Success(c, ev)
}
