// Package transfer 负责磁盘与模板文件的下载、复制、解压、校验和元数据生成
package transfer

import (
	"net/http"
	"time"

	"github.com/jimyag/hostagent/internal/hostagent/share"
)

// Engine 存储传输引擎
type Engine struct {
	client         *http.Client
	connector      share.Connector
	localSecondary string
	s3Region       string
}

// Option 配置 Engine
type Option func(*Engine)

// WithHTTPClient 指定下载使用的 HTTP 客户端
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithS3Region 指定对象存储的 region，默认 us-east-1
func WithS3Region(region string) Option {
	return func(e *Engine) {
		e.s3Region = region
	}
}

// New 创建传输引擎
// localSecondary 是已挂载到本机的二级存储目录，nfs:// 源从这里读取
func New(connector share.Connector, localSecondary string, opts ...Option) *Engine {
	e := &Engine{
		client:         &http.Client{Timeout: 6 * time.Hour},
		connector:      connector,
		localSecondary: localSecondary,
		s3Region:       "us-east-1",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
