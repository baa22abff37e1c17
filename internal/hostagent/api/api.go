package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const defaultAddress = ":8250"

type API struct {
	engine *gin.Engine
	server *http.Server

	resource *Resource
}

// New 创建 HTTP API，address 为空时监听 :8250
func New(dispatcher Dispatcher, address string) (*API, error) {
	if address == "" {
		address = defaultAddress
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	api := &API{
		engine:   engine,
		resource: NewResource(dispatcher),
	}
	api.resource.RegisterRoutes(engine.Group("/api"))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.server = &http.Server{
		Addr:              address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return api, nil
}

// Name 实现 grace.Grace 接口
func (a *API) Name() string {
	return "API Server"
}

// Run 启动监听，ctx 取消后优雅关闭并返回 nil
func (a *API) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("address", ln.Addr().String()).Msg("API server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	}
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Handler 返回路由，供测试直接驱动
func (a *API) Handler() http.Handler {
	return a.engine
}

// requestLogger 把 logger 注入请求 context，未设置时 zerolog.Ctx 回落到 DefaultContextLogger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := zerolog.Ctx(c.Request.Context())
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
