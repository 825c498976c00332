package request

import "relay-core/internal/model"

type DepositRequest struct {
	AppID string `json:"app_id" binding:"required,max=64"`
}

// ExecuteRequest signature 为 base64 编码的 64 字节 ed25519 签名
type ExecuteRequest struct {
	Signature  string        `json:"signature" binding:"required,base64"`
	Payload    model.Payload `json:"payload"`
	SessionKey string        `json:"session_key" binding:"required,near_pubkey"`
	AppID      string        `json:"app_id" binding:"max=64"`
}

type ExecuteNativeRequest struct {
	Signature  string              `json:"signature" binding:"required,base64"`
	Payload    model.NativePayload `json:"payload"`
	SessionKey string              `json:"session_key" binding:"required,near_pubkey"`
	AppID      string              `json:"app_id" binding:"max=64"`
}
