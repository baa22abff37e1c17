package service

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/internal/hostagent/transfer"
	"github.com/jimyag/hostagent/pkg/apierror"
	"github.com/jimyag/hostagent/pkg/libvirt"
)

type vmNameRequest struct {
	VMName string `json:"vmName"`
}

// virtualMachineTO 是 StartCommand/StopCommand 中 vm 字段的结构
type virtualMachineTO struct {
	Name     string            `json:"name"`
	CPUs     int               `json:"cpus"`
	Speed    int               `json:"speed"`
	MinRAM   uint64            `json:"minRam"`
	MaxRAM   uint64            `json:"maxRam"`
	BootArgs string            `json:"bootArgs"`
	Disks    []json.RawMessage `json:"disks"`
	NICs     []nicTO           `json:"nics"`
}

type nicTO struct {
	MAC string `json:"mac"`
}

type startRequest struct {
	VM               json.RawMessage `json:"vm"`
	SecondaryStorage string          `json:"secondaryStorage"`
}

// Start 部署并启动虚拟机，系统虚拟机会额外挂载 systemvm ISO
func (s *Service) Start(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.StartAnswer, cmd.ContextMap())

	var req startRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	ans.Set("vm", req.VM)

	var to virtualMachineTO
	if err := json.Unmarshal(req.VM, &to); err != nil {
		return failed(ctx, ans, cmd, apierror.Invalidf("invalid vm: %v", err))
	}
	spec, err := s.vmSpec(ctx, &to)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	isoPath := ""
	if req.SecondaryStorage != "" {
		isoPath, err = s.isoCache.GetOrCompute(ctx, func(ctx context.Context) (string, error) {
			return s.fetchSystemVMISO(ctx, req.SecondaryStorage)
		})
		if err != nil {
			return failed(ctx, ans, cmd, err)
		}
	}

	if err := s.hv.DeployVM(spec, isoPath); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("vm_name", spec.Name).
		Str("iso", isoPath).
		Msg("VM started")
	return ans.Succeed("")
}

// fetchSystemVMISO 在二级存储的 systemvm 目录下查找唯一的 systemvm*.iso，并复制到本地数据目录
func (s *Service) fetchSystemVMISO(ctx context.Context, secondaryURI string) (string, error) {
	sh, err := share.ParseURI(secondaryURI)
	if err != nil {
		return "", apierror.Invalidf("invalid secondary storage %s: %v", secondaryURI, err)
	}
	root, err := s.resolver.Root(ctx, storage.NFSStore{URI: secondaryURI, Share: *sh})
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, "systemvm")
	choices, err := filepath.Glob(filepath.Join(dir, "systemvm*.iso"))
	if err != nil {
		return "", apierror.IO("search systemvm iso", err)
	}
	if len(choices) != 1 {
		return "", apierror.NotFoundf("Couldn't locate the systemvm iso on %s, found %d candidates", dir, len(choices))
	}

	local := filepath.Join(s.hv.GetDefaultDataRoot(), filepath.Base(choices[0]))
	if !transfer.Exists(local) {
		zerolog.Ctx(ctx).Info().
			Str("src", choices[0]).
			Str("dest", local).
			Msg("Downloading systemvm iso")
		if err := transfer.CopyFile(ctx, choices[0], local); err != nil {
			return "", err
		}
	}
	return local, nil
}

// vmSpec 把 VirtualMachineTO 转为部署描述，磁盘路径由数据存储重新计算
func (s *Service) vmSpec(ctx context.Context, to *virtualMachineTO) (*libvirt.VMSpec, error) {
	if to.Name == "" {
		return nil, apierror.Invalidf("vm has no name")
	}
	memory := to.MaxRAM
	if memory == 0 {
		memory = to.MinRAM
	}
	spec := &libvirt.VMSpec{
		Name:        to.Name,
		CPUs:        to.CPUs,
		SpeedMHz:    to.Speed,
		MemoryBytes: memory,
		BootArgs:    to.BootArgs,
	}

	for _, raw := range to.Disks {
		var peek struct {
			Type string        `json:"type"`
			Data command.Typed `json:"data"`
		}
		if err := json.Unmarshal(raw, &peek); err != nil {
			return nil, apierror.Invalidf("invalid disk: %v", err)
		}
		// 没有数据的光驱
		if peek.Data.IsZero() {
			continue
		}

		ref, err := storage.ParseDiskRef(raw)
		if err != nil {
			return nil, err
		}
		path, err := s.resolver.FullPath(ctx, ref.Data)
		if err != nil {
			return nil, err
		}
		spec.Disks = append(spec.Disks, libvirt.VMDisk{
			Path:     path,
			Format:   ref.Data.Base().Format,
			Sequence: ref.Seq,
			ISO:      ref.Type == storage.DiskISO,
		})
	}

	for _, nic := range to.NICs {
		spec.NICs = append(spec.NICs, libvirt.VMNIC{MAC: nic.MAC})
	}
	return spec, nil
}

// Stop 关闭并删除虚拟机定义
func (s *Service) Stop(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.StopAnswer, cmd.ContextMap())

	var req struct {
		VMName string          `json:"vmName"`
		VM     json.RawMessage `json:"vm"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if len(req.VM) > 0 {
		ans.Set("vm", req.VM)
	}
	if req.VMName == "" {
		return failed(ctx, ans, cmd, apierror.Invalidf("vm name is empty"))
	}

	if err := s.hv.DestroyVM(&libvirt.VMSpec{Name: req.VMName}); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	zerolog.Ctx(ctx).Info().Str("vm_name", req.VMName).Msg("VM stopped")
	return ans.Succeed("")
}

// Reboot 重置虚拟机
func (s *Service) Reboot(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.RebootAnswer, cmd.ContextMap())

	var req vmNameRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	vm, err := s.findVM(req.VMName)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if err := s.hv.SetState(vm, libvirt.StateReset); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	return ans.Succeed("")
}

// Migrate 在线迁移到 destIp
func (s *Service) Migrate(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.MigrateAnswer, cmd.ContextMap())

	var req struct {
		VMName string `json:"vmName"`
		DestIP string `json:"destIp"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if req.VMName == "" || req.DestIP == "" {
		return failed(ctx, ans, cmd, apierror.Invalidf("vmName and destIp are required"))
	}
	if err := s.hv.MigrateVM(req.VMName, req.DestIP); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("vm_name", req.VMName).
		Str("dest_ip", req.DestIP).
		Msg("VM migrated")
	return ans.Succeed("")
}

// PrepareForMigration 目标主机不需要准备
func (s *Service) PrepareForMigration(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.PrepareForMigrationAnswer, cmd.ContextMap()).Succeed("NOP - success")
}

// CheckVirtualMachine 返回虚拟机状态
func (s *Service) CheckVirtualMachine(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.CheckVirtualMachineAnswer, cmd.ContextMap())
	ans.Set("state", nil)

	var req vmNameRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	vm, err := s.findVM(req.VMName)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	ans.Set("state", vmState(vm.State))
	return ans.Succeed("")
}

// vmState 把域状态映射为编排器的虚拟机状态
func vmState(state string) string {
	switch state {
	case "Running", "Blocked", "Paused", "PMSuspended":
		return "Running"
	case "ShuttingDown":
		return "Stopping"
	case "ShutOff", "Crashed":
		return "Stopped"
	default:
		return "Unknown"
	}
}

// GetVncPort 返回控制台地址与端口
func (s *Service) GetVncPort(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.GetVncPortAnswer, cmd.ContextMap())
	ans.Set("address", nil)
	ans.Set("port", -9)

	var req struct {
		Name string `json:"name"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	vm, err := s.findVM(req.Name)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	port, err := s.hv.GetVNCPort(vm)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	address := ""
	if s.host != nil {
		address = s.host.Private.IP
	}
	ans.Set("address", address)
	ans.Set("port", port)
	return ans.Succeed("")
}

// vmStatsEntry 单个虚拟机的统计
type vmStatsEntry struct {
	CPUUtilization  float64 `json:"cpuUtilization"`
	NetworkReadKBs  float64 `json:"networkReadKBs"`
	NetworkWriteKBs float64 `json:"networkWriteKBs"`
	DiskReadIOs     float64 `json:"diskReadIOs"`
	DiskWriteIOs    float64 `json:"diskWriteIOs"`
	DiskReadKBs     float64 `json:"diskReadKBs"`
	DiskWriteKBs    float64 `json:"diskWriteKBs"`
	MemoryKBs       float64 `json:"memoryKBs"`
	NumCPUs         int     `json:"numCPUs"`
	EntityType      string  `json:"entityType"`
}

// GetVmStats 批量查询虚拟机统计，未知的虚拟机会被跳过
func (s *Service) GetVmStats(ctx context.Context, cmd *command.Command) *command.Answer {
	logger := zerolog.Ctx(ctx)
	ans := command.NewAnswer(command.GetVmStatsAnswer, cmd.ContextMap())

	var req struct {
		VMNames []string `json:"vmNames"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	vms := make([]*libvirt.VM, 0, len(req.VMNames))
	for _, name := range req.VMNames {
		vm, err := s.hv.FindVM(name)
		if err != nil {
			return failed(ctx, ans, cmd, err)
		}
		if vm == nil {
			logger.Info().Str("vm_name", name).Msg("GetVmStatsCommand requested unknown VM")
			continue
		}
		vms = append(vms, vm)
	}

	stats := make(map[string]vmStatsEntry, len(vms))
	if len(vms) > 0 {
		summaries, err := s.hv.GetVMSummaries(vms)
		if err != nil {
			return failed(ctx, ans, cmd, err)
		}
		for _, sum := range summaries {
			stats[sum.Name] = vmStatsEntry{
				CPUUtilization: sum.CPUUtilization,
				DiskReadIOs:    float64(sum.DiskReadIOs),
				DiskWriteIOs:   float64(sum.DiskWriteIOs),
				DiskReadKBs:    float64(sum.DiskReadKBs),
				DiskWriteKBs:   float64(sum.DiskWriteKBs),
				MemoryKBs:      float64(sum.MemoryKBs),
				NumCPUs:        sum.NumCPUs,
				EntityType:     "vm",
			}
		}
	}

	ans.Set("vmStatsMap", stats)
	return ans.Succeed("")
}
