package ginx

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// maxBodyBytes 单个请求体的上限，StartupCommand 携带主机上所有虚拟机也远小于此值
const maxBodyBytes = 16 << 20

// bindRaw 读取完整请求体并校验是否为合法 JSON
func bindRaw(ctx *gin.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrMalformedCommand, "read request body failed", err)
	}
	if len(body) > maxBodyBytes {
		return nil, apierror.WrapError(apierror.ErrMalformedCommand, "request body too large", nil)
	}
	if len(body) == 0 || !json.Valid(body) {
		return nil, apierror.ErrMalformedCommand
	}
	return json.RawMessage(body), nil
}
