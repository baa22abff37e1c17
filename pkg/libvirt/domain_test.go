package libvirt

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskTarget(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		prefix   string
		sequence int
		want     string
	}{
		{prefix: "vd", sequence: 0, want: "vda"},
		{prefix: "vd", sequence: 1, want: "vdb"},
		{prefix: "vd", sequence: 25, want: "vdz"},
		{prefix: "vd", sequence: 26, want: "vdaa"},
		{prefix: "sd", sequence: 27, want: "sdab"},
		{prefix: "vd", sequence: -3, want: "vda"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, diskTarget(tc.prefix, tc.sequence))
		})
	}
}

func TestDiskFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vpc", diskFormat("/pool/a.VHD"))
	assert.Equal(t, "vhdx", diskFormat("/pool/a.vhdx"))
	assert.Equal(t, "raw", diskFormat("/pool/v1/datadisk"))
}

func TestBuildDomainXML(t *testing.T) {
	t.Parallel()

	spec := &VMSpec{
		Name:        "s-1-VM",
		CPUs:        2,
		MemoryBytes: 512 << 20,
		BootArgs:    "template=domP type=secstorage",
		Disks: []VMDisk{
			{Path: "/pool/root.vhd", Format: "VHD", Sequence: 0},
			{Path: "/pool/data.vhdx", Format: "VHDX", Sequence: 1},
		},
		NICs: []VMNIC{{MAC: "06:00:00:00:00:01"}, {MAC: "06:00:00:00:00:02", Bridge: "cloudbr1"}},
	}

	domain := buildDomainXML(spec, "/data/systemvm.iso", "br0")
	assert.Equal(t, uint64(512*1024), domain.Memory.Value)
	assert.Equal(t, 2, domain.VCPU.Value)
	assert.Equal(t, "template=domP type=secstorage", domain.Description)

	require.Len(t, domain.Devices.Disks, 3)
	assert.Equal(t, "vda", domain.Devices.Disks[0].Target.Dev)
	assert.Equal(t, "vpc", domain.Devices.Disks[0].Driver.Type)
	assert.Equal(t, "vdb", domain.Devices.Disks[1].Target.Dev)
	assert.Equal(t, "cdrom", domain.Devices.Disks[2].Device)
	assert.Equal(t, "/data/systemvm.iso", domain.Devices.Disks[2].Source.File)

	require.Len(t, domain.Devices.Interfaces, 2)
	assert.Equal(t, "br0", domain.Devices.Interfaces[0].Source.Bridge)
	assert.Equal(t, "cloudbr1", domain.Devices.Interfaces[1].Source.Bridge)
	assert.Equal(t, "06:00:00:00:00:01", domain.Devices.Interfaces[0].MAC.Address)

	out, err := xml.Marshal(domain)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<disk type="file" device="cdrom">`)
	assert.Contains(t, string(out), `<graphics type="vnc" port="-1" autoport="yes" listen="0.0.0.0">`)
}

const sampleDomainXML = `<domain type="kvm">
  <name>i-2-10-VM</name>
  <devices>
    <disk type="file" device="disk">
      <driver name="qemu" type="vpc"/>
      <source file="/pool/root.vhd"/>
      <target dev="vda" bus="virtio"/>
    </disk>
    <disk type="file" device="disk">
      <driver name="qemu" type="vhdx"/>
      <source file="/pool/data.vhdx"/>
      <target dev="vdb" bus="virtio"/>
    </disk>
    <graphics type="vnc" port="5901" autoport="yes" listen="0.0.0.0"/>
  </devices>
</domain>`

func TestParseDomainXML(t *testing.T) {
	t.Parallel()

	var domain DomainXML
	require.NoError(t, xml.Unmarshal([]byte(sampleDomainXML), &domain))

	assert.Equal(t, 5901, vncPort(&domain))

	disk, ok := findDiskBySource(&domain, "/pool//data.vhdx")
	require.True(t, ok)
	assert.Equal(t, "vdb", disk.Target.Dev)

	out, err := xml.Marshal(&disk)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<disk type="file" device="disk">`)
	assert.Contains(t, string(out), `<target dev="vdb" bus="virtio">`)

	_, ok = findDiskBySource(&domain, "/pool/other.vhd")
	assert.False(t, ok)

	assert.Equal(t, -1, vncPort(&DomainXML{}))
}

func TestCPUUtilization(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, cpuUtilization(0, uint64(time.Second), time.Second, 2), 0.001)
	assert.Equal(t, 0.0, cpuUtilization(10, 5, time.Second, 1))
	assert.Equal(t, 100.0, cpuUtilization(0, uint64(3*time.Second), time.Second, 1))
	assert.Equal(t, 0.0, cpuUtilization(0, 10, time.Second, 0))
}

func TestPowerState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PowerOn", powerState(libvirt.DomainRunning))
	assert.Equal(t, "PowerOff", powerState(libvirt.DomainShutoff))
	assert.Equal(t, "PowerUnknown", powerState(libvirt.DomainNostate))
	assert.Equal(t, "Running", formatDomainState(libvirt.DomainRunning))
}

func TestFormatLibvirtVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "8.3.0", formatLibvirtVersion(8003000))
	assert.Equal(t, "10.0.12", formatLibvirtVersion(10000012))
}

func TestInt8String(t *testing.T) {
	t.Parallel()

	var model [32]int8
	for i, c := range "x86_64" {
		model[i] = int8(c)
	}
	assert.Equal(t, "x86_64", int8String(model[:]))
}
