package libvirt

import (
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
)

// GetProcessorInfo 获取主机处理器信息
func (c *Client) GetProcessorInfo() (*ProcessorInfo, error) {
	model, _, cpus, mhz, nodes, sockets, _, _, err := c.conn.NodeGetInfo()
	if err != nil {
		return nil, fmt.Errorf("get node info: %w", err)
	}

	return &ProcessorInfo{
		Sockets:  int(nodes * sockets),
		Cores:    int(cpus),
		SpeedMHz: int(mhz),
		Model:    int8String(model[:]),
	}, nil
}

// GetMemoryInfo 获取主机内存信息
func (c *Client) GetMemoryInfo() (*MemoryInfo, error) {
	_, memoryKiB, _, _, _, _, _, _, err := c.conn.NodeGetInfo()
	if err != nil {
		return nil, fmt.Errorf("get node info: %w", err)
	}
	free, err := c.conn.NodeGetFreeMemory()
	if err != nil {
		return nil, fmt.Errorf("get free memory: %w", err)
	}

	return &MemoryInfo{
		TotalBytes: memoryKiB * 1024,
		FreeBytes:  free,
	}, nil
}

// ListVMSync 列出主机上所有虚拟机的电源状态
func (c *Client) ListVMSync(hostAddress string) (map[string]VMStateEntry, error) {
	flags := libvirt.ConnectListDomainsActive | libvirt.ConnectListDomainsInactive
	domains, _, err := c.conn.ConnectListAllDomains(1000, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve domains: %v", err)
	}

	result := make(map[string]VMStateEntry, len(domains))
	for _, d := range domains {
		state, _, err := c.conn.DomainGetState(d, 0)
		if err != nil {
			return nil, fmt.Errorf("get domain %s state: %w", d.Name, err)
		}
		result[d.Name] = VMStateEntry{
			State: powerState(libvirt.DomainState(state)),
			Host:  hostAddress,
		}
	}
	return result, nil
}

func int8String(b []int8) string {
	var sb strings.Builder
	for _, c := range b {
		if c == 0 {
			break
		}
		sb.WriteByte(byte(c))
	}
	return sb.String()
}
