package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"relay-core/internal/handler/response"
	"relay-core/internal/host"
	"relay-core/pkg/errno"
	"relay-core/pkg/near"
)

const (
	HeaderCallerID        = "X-Caller-Id"
	HeaderAttachedDeposit = "X-Attached-Deposit"

	callKey = "relay.call"
)

// CallerMiddleware 解析调用方身份和附带金额, 构造 host.Call
//   - Authorization: Bearer <oracle token> 视为 oracle 账户
//   - 否则取 X-Caller-Id, 但不能冒充 oracle 账户
//   - X-Attached-Deposit 为 yocto 十进制字符串, 非零金额只接受带 token 的请求
func CallerMiddleware(oracleAccount, oracleToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader(HeaderCallerID)
		authenticated := false

		if auth := c.GetHeader("Authorization"); auth != "" {
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || oracleToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(oracleToken)) != 1 {
				response.Abort(c, errno.ErrTokenInvalid)
				return
			}
			caller = oracleAccount
			authenticated = true
		} else if oracleAccount != "" && caller == oracleAccount {
			response.Abort(c, errno.ErrUnauthorized.WithMessage(HeaderCallerID+" cannot claim the oracle account"))
			return
		}

		var attached near.Token
		if raw := c.GetHeader(HeaderAttachedDeposit); raw != "" {
			v, err := near.ParseToken(raw)
			if err != nil {
				response.Abort(c, errno.ErrBind.WithMessage("invalid "+HeaderAttachedDeposit))
				return
			}
			if !v.IsZero() && !authenticated {
				response.Abort(c, errno.ErrUnauthorized.WithMessage(HeaderAttachedDeposit+" requires an authenticated funding source"))
				return
			}
			attached = v
		}

		c.Set(callKey, host.NewCall(caller, attached))
		c.Next()
	}
}

// CallFrom 未经过中间件时返回匿名调用
func CallFrom(c *gin.Context) host.Call {
	if v, ok := c.Get(callKey); ok {
		if call, ok := v.(host.Call); ok {
			return call
		}
	}
	return host.NewCall("", near.Token{})
}
