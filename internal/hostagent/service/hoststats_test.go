package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/libvirt"
)

const procNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    4096      10    0    0    0     0          0         0     4096      10    0    0    0     0       0          0
  eth0: 2048000    1500    0    0    0     0          0         0  1024000     900    0    0    0     0       0          0
`

func TestGetHostStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	procRoot := t.TempDir()
	writeFile(t, filepath.Join(procRoot, "stat"), "cpu  1000 0 500 8000 100 0 0 0 0 0\nbtime 1700000000\n")
	writeFile(t, filepath.Join(procRoot, "net", "dev"), procNetDev)
	env.svc.procRoot = procRoot

	env.hv.On("GetMemoryInfo").Return(&libvirt.MemoryInfo{TotalBytes: 16 << 30, FreeBytes: 4 << 30}, nil)

	typ, body := env.call(t, command.GetHostStatsCommand, `{"hostGuid":"g","hostName":"kvm01","hostId":7,"contextMap":{}}`)
	assert.Equal(t, command.GetHostStatsAnswer, typ)
	require.Equal(t, true, body["result"], body["details"])

	stats := body["hostStats"].(map[string]any)
	assert.EqualValues(t, 7, stats["hostId"])
	assert.Equal(t, "host", stats["entityType"])
	assert.EqualValues(t, 16<<20, stats["totalMemoryKBs"])
	assert.EqualValues(t, 4<<20, stats["freeMemoryKBs"])
	assert.EqualValues(t, 2000, stats["networkReadKBs"])
	assert.EqualValues(t, 1000, stats["networkWriteKBs"])
	// 两次采样相同
	assert.EqualValues(t, 0, stats["cpuUtilization"])
}

func TestGetHostStats_MissingProc(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.svc.procRoot = filepath.Join(t.TempDir(), "missing")

	_, body := env.call(t, command.GetHostStatsCommand, `{"hostId":7}`)
	assert.Equal(t, false, body["result"])
	assert.Contains(t, body["details"], "GetHostStatsCommand failed due to")
}
