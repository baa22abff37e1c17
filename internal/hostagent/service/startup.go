package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// hostResources 汇总处理器和内存信息，字段名与 libvirt.ProcessorInfo、libvirt.MemoryInfo 对应
type hostResources struct {
	Sockets    int
	Cores      int
	SpeedMHz   int
	TotalBytes uint64
	FreeBytes  uint64
}

// storagePoolInfo StartupStorageCommand 中的 poolInfo
type storagePoolInfo struct {
	UUID           string `json:"uuid"`
	Host           string `json:"host"`
	LocalPath      string `json:"localPath"`
	HostPath       string `json:"hostPath"`
	PoolType       string `json:"poolType"`
	CapacityBytes  int64  `json:"capacityBytes"`
	AvailableBytes int64  `json:"availableBytes"`
}

type startupStorageCommand struct {
	PoolInfo     storagePoolInfo `json:"poolInfo"`
	GUID         string          `json:"guid"`
	DataCenter   any             `json:"dataCenter"`
	ResourceType string          `json:"resourceType"`
	ContextMap   json.RawMessage `json:"contextMap"`
}

// Startup 补全 StartupRoutingCommand 中的主机信息，并追加本地存储池的 StartupStorageCommand
// 请求体是命令数组，应答是补全后的同一个数组
func (s *Service) Startup(ctx context.Context, cmd *command.Command) ([]json.RawMessage, error) {
	logger := zerolog.Ctx(ctx)

	var items []json.RawMessage
	if err := json.Unmarshal(cmd.Payload, &items); err != nil {
		return nil, apierror.Invalidf("StartupCommand expects an array: %v", err)
	}
	if len(items) == 0 {
		return nil, apierror.Invalidf("StartupCommand array is empty")
	}

	var first command.Typed
	if err := json.Unmarshal(items[0], &first); err != nil {
		return nil, apierror.Invalidf("%v", err)
	}
	if first.Type != command.StartupRoutingCommand {
		return nil, apierror.Invalidf("first element of StartupCommand is %s, want %s", first.Type, command.StartupRoutingCommand)
	}

	var routing map[string]any
	if err := first.Decode(&routing); err != nil {
		return nil, apierror.Invalidf("%v", err)
	}

	if err := s.enrichRouting(ctx, routing); err != nil {
		return nil, err
	}
	enriched, err := command.Wrap(command.StartupRoutingCommand, routing)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(enriched)
	if err != nil {
		return nil, err
	}
	out := append([]json.RawMessage{data}, items[1:]...)

	localStoragePath := s.hv.GetDefaultVirtualDiskFolder()
	if localStoragePath == "" {
		logger.Warn().Msg("No default virtual disk folder, skip StartupStorageCommand")
		return out, nil
	}

	poolGUID, _ := routing["guid"].(string)
	if poolGUID == "" {
		poolGUID = uuid.New().String()
		logger.Info().Str("pool_guid", poolGUID).Msg("Setting startup storage pool GUID")
	} else {
		logger.Info().Str("pool_guid", poolGUID).Msg("Setting startup storage pool GUID same as host")
	}

	capacity, available, err := s.host.LocalCapacity(localStoragePath)
	if err != nil {
		return nil, apierror.IO("query local storage capacity", err)
	}
	logger.Debug().Int64("available", available).Msg("StartupStorageCommand set available bytes")

	ctxMap := (&command.Command{Payload: first.Body}).ContextMap()
	storageCmd, err := command.Wrap(command.StartupStorageCommand, startupStorageCommand{
		PoolInfo: storagePoolInfo{
			UUID:           poolGUID,
			Host:           s.host.Private.IP,
			LocalPath:      localStoragePath,
			HostPath:       localStoragePath,
			PoolType:       string(storage.PoolFilesystem),
			CapacityBytes:  capacity,
			AvailableBytes: available,
		},
		GUID:         poolGUID,
		DataCenter:   routing["dataCenter"],
		ResourceType: "STORAGE_POOL",
		ContextMap:   ctxMap,
	})
	if err != nil {
		return nil, err
	}
	data, err = json.Marshal(storageCmd)
	if err != nil {
		return nil, err
	}
	return append(out, data), nil
}

// enrichRouting 写入网络、虚拟化版本、处理器、内存和虚拟机状态
func (s *Service) enrichRouting(ctx context.Context, routing map[string]any) error {
	host := s.host
	routing["privateIpAddress"] = host.Private.IP
	routing["privateNetmask"] = host.Private.Netmask
	routing["privateMacAddress"] = host.Private.MAC
	routing["storageIpAddress"] = host.Storage.IP
	routing["storageNetmask"] = host.Storage.Netmask
	routing["storageMacAddress"] = host.Storage.MAC
	routing["gatewayIpAddress"] = host.Gateway

	version, err := s.hv.HypervisorVersion()
	if err != nil {
		return apierror.IO("query hypervisor version", err)
	}
	routing["hypervisorVersion"] = version
	routing["caps"] = "hvm"

	details, _ := routing["hostDetails"].(map[string]any)
	if details == nil {
		details = map[string]any{}
	}
	details["product_version"] = productVersion(version)
	routing["hostDetails"] = details

	proc, err := s.hv.GetProcessorInfo()
	if err != nil {
		return apierror.IO("query processor info", err)
	}
	mem, err := s.hv.GetMemoryInfo()
	if err != nil {
		return apierror.IO("query memory info", err)
	}
	var res hostResources
	if err := copier.Copy(&res, proc); err != nil {
		return err
	}
	if err := copier.Copy(&res, mem); err != nil {
		return err
	}
	routing["cpus"] = res.Cores
	routing["speed"] = res.SpeedMHz
	routing["cpuSockets"] = res.Sockets
	routing["memory"] = res.TotalBytes
	routing["dom0MinMemory"] = host.ParentPartitionMinMemory

	vms, err := s.hv.ListVMSync(host.Private.IP)
	if err != nil {
		return apierror.IO("list vm states", err)
	}
	routing["vms"] = vms

	zerolog.Ctx(ctx).Info().
		Str("private_ip", host.Private.IP).
		Str("hypervisor_version", version).
		Int("cpus", res.Cores).
		Uint64("memory", res.TotalBytes).
		Int("vms", len(vms)).
		Msg("StartupRoutingCommand enriched")
	return nil
}

// productVersion 取版本号的主次版本，例如 8.0.0 -> 8.0
func productVersion(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}
