// Package hostagent 提供 agent 服务器的主入口和初始化逻辑
package hostagent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jimmicro/grace"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/api"
	"github.com/jimyag/hostagent/internal/hostagent/config"
	"github.com/jimyag/hostagent/internal/hostagent/repository"
	"github.com/jimyag/hostagent/internal/hostagent/service"
	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/internal/hostagent/transfer"
	"github.com/jimyag/hostagent/pkg/libvirt"
	"github.com/jimyag/hostagent/pkg/qemuimg"
)

type Server struct {
	cfg     *config.Config
	api     *api.API
	repo    *repository.Repository
	libvirt *libvirt.Client
}

func New(cfg *config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	// 1. 校验主机资源配置
	host, err := config.NewHostConfig(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("host config: %w", err)
	}
	logger.Info().
		Str("private_ip", host.Private.IP).
		Str("storage_ip", host.Storage.IP).
		Msg("Host config loaded")

	// 2. 打开存储池路径数据库
	repo, err := repository.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	// 3. 连接 libvirt
	lv, err := libvirt.New(libvirt.Config{
		URI:        cfg.LibvirtURI,
		DiskFolder: cfg.DiskFolder,
		DataRoot:   cfg.ISODir(),
		Bridge:     cfg.Bridge,
	}, qemuimg.New(""))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("connect libvirt: %w", err)
	}

	// 4. 组装命令处理服务
	connector := share.NewMountConnector(cfg.MountRoot)
	svc := service.New(service.Deps{
		Hypervisor: lv,
		Connector:  connector,
		Engine:     transfer.New(connector, host.LocalSecondaryStoragePath),
		Host:       host,
		Pools:      config.NewPoolRegistry(repository.NewPoolRepository(repo.DB())),
		ISOCache:   config.NewISOCache(cfg.Host.SystemVMISO),
	})

	apiInstance, err := api.New(service.NewDispatcher(svc), cfg.Address)
	if err != nil {
		lv.Close()
		repo.Close()
		return nil, err
	}

	return &Server{
		cfg:     cfg,
		api:     apiInstance,
		repo:    repo,
		libvirt: lv,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	services := []grace.Grace{
		s.api,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.api.Shutdown(ctx)
}

// Close 释放 libvirt 连接和数据库，在 Run 返回后调用
func (s *Server) Close() {
	if err := s.libvirt.Close(); err != nil {
		zerolog.DefaultContextLogger.Warn().Err(err).Msg("Failed to close libvirt connection")
	}
	if err := s.repo.Close(); err != nil {
		zerolog.DefaultContextLogger.Warn().Err(err).Msg("Failed to close repository")
	}
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "Host Agent Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
