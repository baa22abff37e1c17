package api

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/jimyag/hostagent/pkg/ginx"
)

// Dispatcher 把命令名和原始请求体转换为应答数组
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload json.RawMessage) []json.RawMessage
}

// Resource 管理服务器通过 HTTP 投递命令的入口
type Resource struct {
	dispatcher Dispatcher
}

func NewResource(dispatcher Dispatcher) *Resource {
	return &Resource{dispatcher: dispatcher}
}

// RegisterRoutes 注册路由
func (r *Resource) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/HypervResource", ginx.Adapt2(r.Describe))
	g.POST("/HypervResource/:command", ginx.AdaptRaw(r.Execute))
}

// Describe 存活检查
func (r *Resource) Describe(c *gin.Context) string {
	return "HypervResource controller running, use POST to send JSON encoded RPCs"
}

// Execute 执行一条命令，命令自身的失败通过应答的 result/details 返回
func (r *Resource) Execute(c *gin.Context, body json.RawMessage) ([]json.RawMessage, error) {
	return r.dispatcher.Dispatch(c.Request.Context(), c.Param("command"), body), nil
}
