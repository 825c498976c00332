package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// 持久化状态使用确定性 CBOR (RFC 8949 §4.2): 同样的值总是得到同样的字节,
// 存储用量按字节计费, 因此编码必须稳定
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR 编码器初始化失败: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR 解码器初始化失败: " + err.Error())
	}
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
