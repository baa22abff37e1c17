package ginx

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Adapt2 适配无参数、只有返回值的 handler
func Adapt2[T any](fn func(*gin.Context) T) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		renderResponse(ctx, fn(ctx))
	}
}

// AdaptRaw 适配接收原始 JSON 请求体的 handler
// 请求体为空或不是合法 JSON 时直接返回 400，不会调用 fn
func AdaptRaw[T any](fn func(*gin.Context, json.RawMessage) (T, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := bindRaw(ctx)
		if err != nil {
			renderError(ctx, http.StatusBadRequest, err)
			return
		}

		result, err := fn(ctx, body)
		if err != nil {
			renderError(ctx, http.StatusInternalServerError, err)
			return
		}
		renderResponse(ctx, result)
	}
}
