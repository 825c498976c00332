package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-core/pkg/errno"
)

// Response 统一的 JSON 结构, 业务错误同样返回 HTTP 200
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error returns an error response
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}

// Abort 中间件中使用
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
