package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// renderResponse 渲染响应，string 按纯文本输出，其他类型序列化为 JSON
func renderResponse(ctx *gin.Context, response any) {
	if response == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	if v, ok := response.(string); ok {
		ctx.String(http.StatusOK, v)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// renderError 渲染错误响应
// *apierror.Error 使用自身的 HTTPStatus，并包装为 ErrorResponse
func renderError(ctx *gin.Context, statusCode int, err error) {
	zerolog.Ctx(ctx.Request.Context()).Warn().Err(err).
		Str("path", ctx.Request.URL.Path).
		Msg("Request rejected")

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatus > 0 {
			statusCode = apiErr.HTTPStatus
		}
		ctx.JSON(statusCode, apierror.NewErrorResponse(ctx.GetHeader("X-Request-Id"), apiErr))
		return
	}

	var errorResp *apierror.ErrorResponse
	if errors.As(err, &errorResp) {
		if len(errorResp.Errors) > 0 && errorResp.Errors[0].HTTPStatus > 0 {
			statusCode = errorResp.Errors[0].HTTPStatus
		}
		ctx.JSON(statusCode, errorResp)
		return
	}

	ctx.JSON(statusCode, gin.H{"error": err.Error()})
}
