package libvirt

import (
	"errors"

	"github.com/digitalocean/go-libvirt"
)

// ErrDiskNotAttached 磁盘没有挂载在指定虚拟机上
var ErrDiskNotAttached = errors.New("disk is not attached to the domain")

// RequestedState 请求的虚拟机状态迁移
type RequestedState int

const (
	StateStart RequestedState = iota
	StateStop
	StateReset
)

func (s RequestedState) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateStop:
		return "Stop"
	case StateReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// VM 是已定义虚拟机的句柄
type VM struct {
	Name  string
	UUID  string
	State string
	// Running 对应 libvirt.DomainRunning
	Running bool

	domain libvirt.Domain
}

// VMSpec 部署或销毁虚拟机所需的描述，由 StartCommand/StopCommand 的 vm 字段解析而来
type VMSpec struct {
	Name        string
	CPUs        int
	SpeedMHz    int
	MemoryBytes uint64
	BootArgs    string
	Disks       []VMDisk
	NICs        []VMNIC
}

// VMDisk 部署时挂载的磁盘
type VMDisk struct {
	Path     string
	Format   string
	Sequence int
	ISO      bool
}

// VMNIC 部署时创建的网卡
type VMNIC struct {
	MAC    string
	Bridge string
}

// ProcessorInfo 主机处理器信息
type ProcessorInfo struct {
	Sockets  int
	Cores    int // 逻辑处理器总数
	SpeedMHz int
	Model    string
}

// MemoryInfo 主机内存信息（字节）
type MemoryInfo struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// VMStateEntry 主机上单个虚拟机的电源状态
type VMStateEntry struct {
	State string `json:"state"`
	Host  string `json:"host"`
}

// VMSummary 虚拟机性能摘要
type VMSummary struct {
	Name           string
	NumCPUs        int
	CPUUtilization float64 // 百分比
	MemoryKBs      uint64
	DiskReadKBs    uint64
	DiskWriteKBs   uint64
	DiskReadIOs    uint64
	DiskWriteIOs   uint64
}

// powerState 把 libvirt 域状态映射为编排器使用的电源状态
func powerState(state libvirt.DomainState) string {
	switch state {
	case libvirt.DomainRunning, libvirt.DomainBlocked, libvirt.DomainPaused, libvirt.DomainPmsuspended:
		return "PowerOn"
	case libvirt.DomainShutoff, libvirt.DomainShutdown, libvirt.DomainCrashed:
		return "PowerOff"
	default:
		return "PowerUnknown"
	}
}

// formatDomainState 将域状态数字转换为可读字符串
func formatDomainState(state libvirt.DomainState) string {
	switch state {
	case libvirt.DomainNostate:
		return "NoState"
	case libvirt.DomainRunning:
		return "Running"
	case libvirt.DomainBlocked:
		return "Blocked"
	case libvirt.DomainPaused:
		return "Paused"
	case libvirt.DomainShutdown:
		return "ShuttingDown"
	case libvirt.DomainShutoff:
		return "ShutOff"
	case libvirt.DomainCrashed:
		return "Crashed"
	case libvirt.DomainPmsuspended:
		return "PMSuspended"
	default:
		return "Unknown"
	}
}
