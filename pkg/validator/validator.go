package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"relay-core/pkg/near"
)

var once sync.Once

// Init 在 gin 默认的 validator 上注册 NEAR 相关的校验标签
//   - near_account: 合法的 NEAR 账户名
//   - near_pubkey:  "ed25519:..." / "secp256k1:..." 公钥
//   - yocto:        十进制 u128 金额
func Init() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("near_account", func(fl validator.FieldLevel) bool {
			return near.ValidateAccountID(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("near_pubkey", func(fl validator.FieldLevel) bool {
			_, err := near.ParsePublicKey(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("yocto", func(fl validator.FieldLevel) bool {
			_, err := near.ParseToken(fl.Field().String())
			return err == nil
		})
	})
}

// GetErrorMsg 把校验错误翻译成可读信息
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数错误"
	}

	var errMsgs []string
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 长度不能超过 %s", field, e.Param()))
		case "near_account":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的 NEAR 账户", field))
		case "near_pubkey":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的公钥", field))
		case "yocto":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的金额", field))
		case "base64":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 base64", field))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
