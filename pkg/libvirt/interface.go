package libvirt

import "context"

// LibvirtClient 定义 agent 使用的虚拟化控制面
// 用于抽象 libvirt 操作，便于测试和 mock
type LibvirtClient interface {
	// 虚拟机查找与状态
	FindVM(name string) (*VM, error)
	SetState(vm *VM, state RequestedState) error
	GetVNCPort(vm *VM) (int, error)

	// 磁盘
	AttachDisk(vmName, path string, sequence int) error
	AttachISO(vmName, path string) error
	DetachDisk(vmName, path string) error
	CreateDisk(ctx context.Context, sizeBytes uint64, path string) error
	DiskVirtualSize(ctx context.Context, path string) (uint64, error)

	// 生命周期
	DeployVM(spec *VMSpec, isoPath string) error
	DestroyVM(spec *VMSpec) error
	MigrateVM(vmName, destAddress string) error

	// 主机信息
	GetProcessorInfo() (*ProcessorInfo, error)
	GetMemoryInfo() (*MemoryInfo, error)
	GetDefaultVirtualDiskFolder() string
	GetDefaultDataRoot() string
	HypervisorVersion() (string, error)
	ListVMSync(hostAddress string) (map[string]VMStateEntry, error)
	GetVMSummaries(vms []*VM) ([]VMSummary, error)
}
