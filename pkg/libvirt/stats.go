package libvirt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-qemu/qmp"
)

type cpuSample struct {
	cpuTime uint64
	at      time.Time
}

// GetVMSummaries 一次性查询多个虚拟机的性能摘要
// CPU 利用率通过间隔 StatsInterval 的两次 cpuTime 采样计算，所有虚拟机共享同一采样窗口
func (c *Client) GetVMSummaries(vms []*VM) ([]VMSummary, error) {
	first := make(map[string]cpuSample, len(vms))
	for _, vm := range vms {
		_, _, _, _, cpuTime, err := c.conn.DomainGetInfo(vm.domain)
		if err != nil {
			return nil, fmt.Errorf("get domain %s info: %w", vm.Name, err)
		}
		first[vm.Name] = cpuSample{cpuTime: cpuTime, at: time.Now()}
	}

	time.Sleep(c.cfg.StatsInterval)

	summaries := make([]VMSummary, 0, len(vms))
	for _, vm := range vms {
		state, _, memory, vcpus, cpuTime, err := c.conn.DomainGetInfo(vm.domain)
		if err != nil {
			return nil, fmt.Errorf("get domain %s info: %w", vm.Name, err)
		}

		s := VMSummary{
			Name:      vm.Name,
			NumCPUs:   int(vcpus),
			MemoryKBs: memory,
		}
		prev := first[vm.Name]
		s.CPUUtilization = cpuUtilization(prev.cpuTime, cpuTime, time.Since(prev.at), int(vcpus))

		if libvirt.DomainState(state) == libvirt.DomainRunning {
			stats, err := c.blockStats(vm.Name)
			if err == nil {
				for _, bs := range stats {
					s.DiskReadKBs += bs.Stats.RdBytes / 1024
					s.DiskWriteKBs += bs.Stats.WrBytes / 1024
					s.DiskReadIOs += bs.Stats.RdOperations
					s.DiskWriteIOs += bs.Stats.WrOperations
				}
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func cpuUtilization(prevNs, curNs uint64, elapsed time.Duration, vcpus int) float64 {
	if curNs <= prevNs || elapsed <= 0 || vcpus <= 0 {
		return 0
	}
	u := float64(curNs-prevNs) / float64(elapsed.Nanoseconds()) / float64(vcpus) * 100
	if u > 100 {
		u = 100
	}
	return u
}

type blockStatsEntry struct {
	Device string `json:"device"`
	Stats  struct {
		RdBytes      uint64 `json:"rd_bytes"`
		WrBytes      uint64 `json:"wr_bytes"`
		RdOperations uint64 `json:"rd_operations"`
		WrOperations uint64 `json:"wr_operations"`
	} `json:"stats"`
}

// blockStats 通过 libvirt 透传的 QMP 通道查询块设备统计
func (c *Client) blockStats(domainName string) ([]blockStatsEntry, error) {
	monitor := qmp.NewLibvirtRPCMonitor(domainName, c.conn)

	cmd, err := json.Marshal(qmp.Command{Execute: "query-blockstats"})
	if err != nil {
		return nil, err
	}
	raw, err := monitor.Run(cmd)
	if err != nil {
		return nil, fmt.Errorf("query-blockstats on %s: %w", domainName, err)
	}

	var resp struct {
		Return []blockStatsEntry `json:"return"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode query-blockstats: %w", err)
	}
	return resp.Return, nil
}
