// Package config 负责 agent 配置的加载，以及主机网络、保留空间等资源配置的校验
package config

import (
	"fmt"
	"net"

	"github.com/jimyag/hostagent/internal/hostagent/share"
)

// NetInfo 一个网络接口的地址信息
type NetInfo struct {
	IP      string
	Netmask string
	MAC     string
	NIC     string
}

// HostConfig 进程启动时构造一次的主机资源配置
type HostConfig struct {
	Private NetInfo
	Storage NetInfo
	Gateway string

	RootDeviceName               string
	RootDeviceReservedSpaceBytes int64
	ParentPartitionMinMemory     uint64 // 字节
	LocalSecondaryStoragePath    string

	Pod     string
	Zone    string
	Cluster string
}

var interfaces = net.Interfaces

// NewHostConfig 校验 IP 并从所属网卡推导掩码和 MAC
// 存储网络未配置时与管理网络相同
func NewHostConfig(s HostSettings) (*HostConfig, error) {
	private, err := lookupNetInfo(s.PrivateIPAddress)
	if err != nil {
		return nil, fmt.Errorf("private ip: %w", err)
	}

	storage := private
	if s.StorageIPAddress != "" && s.StorageIPAddress != s.PrivateIPAddress {
		storage, err = lookupNetInfo(s.StorageIPAddress)
		if err != nil {
			return nil, fmt.Errorf("storage ip: %w", err)
		}
	}

	if s.GatewayIPAddress != "" && net.ParseIP(s.GatewayIPAddress) == nil {
		return nil, fmt.Errorf("invalid gateway ip %q", s.GatewayIPAddress)
	}
	if s.RootDeviceReservedSpaceBytes < 0 {
		return nil, fmt.Errorf("root device reserved space must not be negative")
	}

	return &HostConfig{
		Private:                      private,
		Storage:                      storage,
		Gateway:                      s.GatewayIPAddress,
		RootDeviceName:               s.RootDeviceName,
		RootDeviceReservedSpaceBytes: s.RootDeviceReservedSpaceBytes,
		ParentPartitionMinMemory:     s.ParentPartitionMinMemoryMB << 20,
		LocalSecondaryStoragePath:    s.LocalSecondaryStoragePath,
		Pod:                          s.Pod,
		Zone:                         s.Zone,
		Cluster:                      s.Cluster,
	}, nil
}

// lookupNetInfo 未指定 IP 时选第一个非回环的 IPv4 地址
func lookupNetInfo(ip string) (NetInfo, error) {
	var want net.IP
	if ip != "" {
		want = net.ParseIP(ip)
		if want == nil {
			return NetInfo{}, fmt.Errorf("invalid ip address %q", ip)
		}
	}

	ifaces, err := interfaces()
	if err != nil {
		return NetInfo{}, fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if want == nil {
				if iface.Flags&net.FlagLoopback != 0 || ipNet.IP.To4() == nil {
					continue
				}
			} else if !ipNet.IP.Equal(want) {
				continue
			}
			return NetInfo{
				IP:      ipNet.IP.String(),
				Netmask: net.IP(ipNet.Mask).String(),
				MAC:     iface.HardwareAddr.String(),
				NIC:     iface.Name,
			}, nil
		}
	}

	if want == nil {
		return NetInfo{}, fmt.Errorf("no non-loopback ipv4 address found")
	}
	return NetInfo{}, fmt.Errorf("ip address %s is not assigned to any interface", ip)
}

// LocalCapacity 返回本地路径的容量与可用空间
// 路径位于根设备时扣除保留空间，结果不小于 0
func (h *HostConfig) LocalCapacity(path string) (capacity, available int64, err error) {
	c, a, err := share.Capacity(path)
	if err != nil {
		return 0, 0, err
	}
	capacity, available = int64(c), int64(a)

	if h.RootDeviceName == "" || h.RootDeviceReservedSpaceBytes == 0 {
		return capacity, available, nil
	}
	onRoot, err := share.SameDevice(path, h.RootDeviceName)
	if err != nil {
		return 0, 0, err
	}
	if onRoot {
		capacity = max(capacity-h.RootDeviceReservedSpaceBytes, 0)
		available = max(available-h.RootDeviceReservedSpaceBytes, 0)
	}
	return capacity, available, nil
}
