// Package ginx 提供 gin 框架的 handler 适配器，负责请求体绑定和响应渲染
//
// 支持的 handler 函数签名：
//
//	// 1. 无参数，只有返回值
//	func(c *gin.Context) resp
//
//	// 2. 原始 JSON 请求体，有返回值和 error
//	func(c *gin.Context, body json.RawMessage) (resp, error)
//
// 使用示例：
//
//	router := gin.New()
//
//	router.GET("/health", ginx.Adapt2(func(c *gin.Context) string {
//	    return "ok"
//	}))
//
//	router.POST("/rpc/:name", ginx.AdaptRaw(func(c *gin.Context, body json.RawMessage) ([]json.RawMessage, error) {
//	    return dispatch(c, c.Param("name"), body), nil
//	}))
//
// 错误为 *apierror.Error 时使用其 HTTPStatus 并序列化为 apierror.ErrorResponse。
package ginx
