package service

import (
	"context"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// hostStatsEntry GetHostStatsAnswer 中的 hostStats
type hostStatsEntry struct {
	HostID          any     `json:"hostId"`
	EntityType      string  `json:"entityType"`
	CPUUtilization  float64 `json:"cpuUtilization"`
	NetworkReadKBs  float64 `json:"networkReadKBs"`
	NetworkWriteKBs float64 `json:"networkWriteKBs"`
	TotalMemoryKBs  float64 `json:"totalMemoryKBs"`
	FreeMemoryKBs   float64 `json:"freeMemoryKBs"`
}

// GetHostStats 返回主机的 CPU 使用率、内存和管理网卡流量
func (s *Service) GetHostStats(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.GetHostStatsAnswer, cmd.ContextMap())
	ans.Set("hostStats", nil)

	var req struct {
		HostID any `json:"hostId"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	fs, err := procfs.NewFS(s.procRoot)
	if err != nil {
		return failed(ctx, ans, cmd, apierror.IO("open procfs", err))
	}

	cpu, err := s.cpuUtilization(ctx, fs)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	mem, err := s.hv.GetMemoryInfo()
	if err != nil {
		return failed(ctx, ans, cmd, apierror.IO("query memory info", err))
	}

	stats := hostStatsEntry{
		HostID:         req.HostID,
		EntityType:     "host",
		CPUUtilization: cpu,
		TotalMemoryKBs: float64(mem.TotalBytes / 1024),
		FreeMemoryKBs:  float64(mem.FreeBytes / 1024),
	}

	if nic := s.host.Private.NIC; nic != "" {
		dev, err := fs.NetDev()
		if err != nil {
			return failed(ctx, ans, cmd, apierror.IO("read network statistics", err))
		}
		if line, ok := dev[nic]; ok {
			stats.NetworkReadKBs = float64(line.RxBytes) / 1024
			stats.NetworkWriteKBs = float64(line.TxBytes) / 1024
		} else {
			zerolog.Ctx(ctx).Warn().Str("nic", nic).Msg("No statistics for private nic")
		}
	}

	ans.Set("hostStats", stats)
	return ans.Succeed("")
}

// cpuUtilization 两次采样 /proc/stat 计算使用率（百分比）
func (s *Service) cpuUtilization(ctx context.Context, fs procfs.FS) (float64, error) {
	before, err := fs.Stat()
	if err != nil {
		return 0, apierror.IO("read cpu statistics", err)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(s.statInterval):
	}

	after, err := fs.Stat()
	if err != nil {
		return 0, apierror.IO("read cpu statistics", err)
	}

	total := cpuTotal(after.CPUTotal) - cpuTotal(before.CPUTotal)
	if total <= 0 {
		return 0, nil
	}
	idle := (after.CPUTotal.Idle + after.CPUTotal.Iowait) - (before.CPUTotal.Idle + before.CPUTotal.Iowait)
	return 100 * (1 - idle/total), nil
}

func cpuTotal(c procfs.CPUStat) float64 {
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
}
