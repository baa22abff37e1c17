// Package service 实现编排器下发的各个命令
//
// 每个处理器自己解析命令、处理错误，失败时返回 result=false 的应答，不会把错误抛给调用方
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/config"
	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/internal/hostagent/transfer"
	"github.com/jimyag/hostagent/pkg/apierror"
	"github.com/jimyag/hostagent/pkg/libvirt"
)

// Service 命令处理服务
type Service struct {
	hv        libvirt.LibvirtClient
	connector share.Connector
	resolver  *storage.Resolver
	engine    *transfer.Engine
	host      *config.HostConfig
	pools     *config.PoolRegistry
	isoCache  *config.ISOCache

	sshTimeout   time.Duration
	procRoot     string
	statInterval time.Duration
}

// Deps 创建 Service 所需的依赖
type Deps struct {
	Hypervisor libvirt.LibvirtClient
	Connector  share.Connector
	Engine     *transfer.Engine
	Host       *config.HostConfig
	Pools      *config.PoolRegistry
	ISOCache   *config.ISOCache
}

// New 创建命令处理服务
func New(deps Deps) *Service {
	isoCache := deps.ISOCache
	if isoCache == nil {
		isoCache = config.NewISOCache("")
	}
	return &Service{
		hv:           deps.Hypervisor,
		connector:    deps.Connector,
		resolver:     storage.NewResolver(deps.Connector, deps.Hypervisor.GetDefaultVirtualDiskFolder()),
		engine:       deps.Engine,
		host:         deps.Host,
		pools:        deps.Pools,
		isoCache:     isoCache,
		sshTimeout:   10 * time.Second,
		procRoot:     "/proc",
		statInterval: time.Second,
	}
}

// shortName 返回命令类型名的最后一段，例如 AttachCommand
func shortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// failed 把错误转换为失败应答，details 形如 "<命令> failed due to <原因>"
func failed(ctx context.Context, ans *command.Answer, cmd *command.Command, err error) *command.Answer {
	details := fmt.Sprintf("%s failed due to %s", shortName(cmd.Name), apierror.Detail(err))

	event := zerolog.Ctx(ctx).Error()
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		event = event.Str("code", apiErr.Code)
		if apiErr.RawError != nil {
			event = event.AnErr("raw_error", apiErr.RawError)
		}
	} else {
		event = event.Err(err)
	}
	event.Str("command", shortName(cmd.Name)).Msg(details)

	return ans.Fail(details)
}

// decode 解析命令体，解析失败统一为参数错误
func decode(cmd *command.Command, v any) error {
	if err := cmd.Decode(v); err != nil {
		return apierror.Invalidf("%v", err)
	}
	return nil
}

// findVM 查找虚拟机，不存在时返回 NotFound
func (s *Service) findVM(vmName string) (*libvirt.VM, error) {
	if vmName == "" {
		return nil, apierror.Invalidf("vm name is empty")
	}
	vm, err := s.hv.FindVM(vmName)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, apierror.NotFoundf("requested unknown VM %s", vmName)
	}
	return vm, nil
}
