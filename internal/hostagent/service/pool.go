package service

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/pkg/apierror"
)

type poolRequest struct {
	LocalPath string `json:"localPath"`
	Pool      struct {
		ID   any    `json:"id"`
		UUID string `json:"uuid"`
		Host string `json:"host"`
		Path string `json:"path"`
		Port int    `json:"port"`
		Type string `json:"type"`
	} `json:"pool"`
}

// poolInfo ModifyStoragePoolAnswer 中的 poolInfo
type poolInfo struct {
	UUID           *string `json:"uuid"`
	Host           string  `json:"host"`
	HostPath       string  `json:"hostPath"`
	LocalPath      string  `json:"localPath"`
	PoolType       string  `json:"poolType"`
	CapacityBytes  int64   `json:"capacityBytes"`
	AvailableBytes int64   `json:"availableBytes"`
}

// CreateStoragePool 兼容旧版本，不做任何事
func (s *Service) CreateStoragePool(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.Answer, cmd.ContextMap()).Succeed("success - NOP")
}

// DeleteStoragePool 不删除池对应的本地路径
func (s *Service) DeleteStoragePool(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.Answer, cmd.ContextMap()).
		Succeed("Current implementation does not delete local path corresponding to storage pool!")
}

// ModifyStoragePool 校验存储池并返回容量，网络池会挂载并记录本地路径
func (s *Service) ModifyStoragePool(ctx context.Context, cmd *command.Command) *command.Answer {
	logger := zerolog.Ctx(ctx)

	var req poolRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, command.NewAnswer(command.Answer, cmd.ContextMap()), cmd, err)
	}

	poolType, err := storage.ParsePoolType(req.Pool.Type)
	if err != nil {
		details := "Request to create / modify unsupported pool type: " + nonEmpty(req.Pool.Type)
		logger.Error().Err(err).Msg(details)
		return command.NewAnswer(command.Answer, cmd.ContextMap()).Fail(details)
	}

	ans := command.NewAnswer(command.ModifyStoragePoolAnswer, cmd.ContextMap())
	ans.Set("templateInfo", map[string]string{})

	var (
		hostPath  string
		capacity  int64
		available int64
	)
	if poolType.IsNetwork() {
		sh, err := share.ParseURI(poolType.Scheme() + "://" + req.Pool.Host + req.Pool.Path)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.Invalidf("%v", err))
		}
		mountPath, err := s.connector.Connect(ctx, sh)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO("Failed to connect "+sh.UNC(), err))
		}
		c, a, err := share.Capacity(mountPath)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO("query share capacity", err))
		}
		capacity, available = int64(c), int64(a)
		hostPath = mountPath

		if err := s.pools.Register(ctx, req.Pool.UUID, mountPath, sh.UNC(), string(poolType)); err != nil {
			return failed(ctx, ans, cmd, err)
		}
	} else {
		hostPath = req.LocalPath
		if info, err := os.Stat(hostPath); err != nil || !info.IsDir() {
			return failed(ctx, ans, cmd, apierror.NotFoundf("local path %s does not exist", hostPath))
		}
		capacity, available, err = s.host.LocalCapacity(hostPath)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO("query local capacity", err))
		}
	}

	logger.Info().
		Str("pool_uuid", req.Pool.UUID).
		Str("pool_type", string(poolType)).
		Str("local_path", hostPath).
		Int64("capacity", capacity).
		Int64("available", available).
		Msg("Storage pool modified")

	ans.Set("localPath", hostPath)
	ans.Set("poolInfo", poolInfo{
		Host:           req.Pool.Host,
		HostPath:       req.Pool.Path,
		LocalPath:      hostPath,
		PoolType:       req.Pool.Type,
		CapacityBytes:  capacity,
		AvailableBytes: available,
	})
	return ans.Succeed("")
}

// GetStorageStats 查询池容量，网络池使用 ModifyStoragePool 记录的本地路径
func (s *Service) GetStorageStats(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.GetStorageStatsAnswer, cmd.ContextMap())
	ans.Set("capacity", 0)
	ans.Set("used", 0)

	var req struct {
		ID        string `json:"id"`
		PoolType  string `json:"pooltype"`
		LocalPath string `json:"localPath"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	poolType, err := storage.ParsePoolType(req.PoolType)
	if err != nil {
		return failed(ctx, ans, cmd, apierror.Unsupportedf("Request to get unsupported pool type: %s", nonEmpty(req.PoolType)))
	}

	var hostPath string
	var capacity, available int64
	if poolType.IsNetwork() {
		hostPath, err = s.pools.LocalPath(ctx, req.ID)
		if err != nil {
			return failed(ctx, ans, cmd, err)
		}
		c, a, err := share.Capacity(hostPath)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO("query share capacity", err))
		}
		capacity, available = int64(c), int64(a)
	} else {
		hostPath = req.LocalPath
		capacity, available, err = s.host.LocalCapacity(hostPath)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO(fmt.Sprintf("query capacity of %s", hostPath), err))
		}
	}

	used := capacity - available
	zerolog.Ctx(ctx).Debug().
		Str("path", hostPath).
		Int64("used", used).
		Msg("Storage stats collected")

	ans.Set("capacity", capacity)
	ans.Set("used", used)
	return ans.Succeed("")
}
