package libvirt

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/hostagent/pkg/qemuimg"
)

// FindVM 通过名称查找虚拟机
// 虚拟机不存在时返回 nil, nil
func (c *Client) FindVM(name string) (*VM, error) {
	domain, err := c.conn.DomainLookupByName(name)
	if err != nil {
		if libvirt.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup domain %s: %w", name, err)
	}

	state, _, err := c.conn.DomainGetState(domain, 0)
	if err != nil {
		return nil, fmt.Errorf("get domain state: %w", err)
	}

	return &VM{
		Name:    domain.Name,
		UUID:    fmt.Sprintf("%x", domain.UUID),
		State:   formatDomainState(libvirt.DomainState(state)),
		Running: libvirt.DomainState(state) == libvirt.DomainRunning,
		domain:  domain,
	}, nil
}

// SetState 改变虚拟机状态
func (c *Client) SetState(vm *VM, state RequestedState) error {
	var err error
	switch state {
	case StateStart:
		err = c.conn.DomainCreate(vm.domain)
	case StateStop:
		err = c.conn.DomainDestroy(vm.domain)
	case StateReset:
		err = c.conn.DomainReset(vm.domain, 0)
	default:
		return fmt.Errorf("unsupported state %d", state)
	}
	if err != nil {
		return fmt.Errorf("set domain %s state to %s: %w", vm.Name, state, err)
	}
	return nil
}

// GetVNCPort 返回虚拟机 VNC 端口，未分配时返回 -1
func (c *Client) GetVNCPort(vm *VM) (int, error) {
	domainXML, err := c.domainXML(vm.domain)
	if err != nil {
		return 0, err
	}
	return vncPort(domainXML), nil
}

func vncPort(domainXML *DomainXML) int {
	for _, g := range domainXML.Devices.Graphics {
		if g.Type == "vnc" && g.Port > 0 {
			return g.Port
		}
	}
	return -1
}

// AttachDisk 把磁盘文件挂载到虚拟机，sequence 决定目标设备名
func (c *Client) AttachDisk(vmName, path string, sequence int) error {
	disk := DomainDisk{
		Type:   "file",
		Device: "disk",
		Driver: DomainDiskDriver{Name: "qemu", Type: diskFormat(path)},
		Source: &DomainDiskSrc{File: path},
		Target: DomainDiskTarget{Dev: diskTarget("vd", sequence), Bus: "virtio"},
	}
	return c.attachDevice(vmName, disk)
}

// AttachISO 把 ISO 作为光驱挂载到虚拟机
func (c *Client) AttachISO(vmName, path string) error {
	domain, err := c.conn.DomainLookupByName(vmName)
	if err != nil {
		return fmt.Errorf("lookup domain: %w", err)
	}
	domainXML, err := c.domainXML(domain)
	if err != nil {
		return err
	}

	cdroms := 0
	for _, d := range domainXML.Devices.Disks {
		if d.Device == "cdrom" {
			if d.Source != nil && d.Source.File == path {
				return nil
			}
			cdroms++
		}
	}

	disk := DomainDisk{
		Type:     "file",
		Device:   "cdrom",
		Driver:   DomainDiskDriver{Name: "qemu", Type: "raw"},
		Source:   &DomainDiskSrc{File: path},
		Target:   DomainDiskTarget{Dev: diskTarget("sd", cdroms), Bus: "scsi"},
		ReadOnly: &struct{}{},
	}
	return c.attachDevice(vmName, disk)
}

func (c *Client) attachDevice(vmName string, disk DomainDisk) error {
	domain, err := c.conn.DomainLookupByName(vmName)
	if err != nil {
		return fmt.Errorf("lookup domain: %w", err)
	}

	diskXML, err := xml.Marshal(&disk)
	if err != nil {
		return fmt.Errorf("marshal disk XML: %w", err)
	}

	flags, err := c.modifyFlags(domain)
	if err != nil {
		return err
	}
	if err := c.conn.DomainAttachDeviceFlags(domain, string(diskXML), flags); err != nil {
		return fmt.Errorf("attach %s to domain %s: %w", disk.Source.File, vmName, err)
	}
	return nil
}

// DetachDisk 按源文件路径卸载磁盘或光驱
// 磁盘没有挂载时返回 ErrDiskNotAttached
func (c *Client) DetachDisk(vmName, path string) error {
	domain, err := c.conn.DomainLookupByName(vmName)
	if err != nil {
		return fmt.Errorf("lookup domain: %w", err)
	}
	domainXML, err := c.domainXML(domain)
	if err != nil {
		return err
	}

	disk, ok := findDiskBySource(domainXML, path)
	if !ok {
		return fmt.Errorf("%s on %s: %w", path, vmName, ErrDiskNotAttached)
	}

	diskXML, err := xml.Marshal(&disk)
	if err != nil {
		return fmt.Errorf("marshal disk XML: %w", err)
	}

	flags, err := c.modifyFlags(domain)
	if err != nil {
		return err
	}
	if err := c.conn.DomainDetachDeviceFlags(domain, string(diskXML), flags); err != nil {
		return fmt.Errorf("detach %s from domain %s: %w", path, vmName, err)
	}
	return nil
}

func findDiskBySource(domainXML *DomainXML, path string) (DomainDisk, bool) {
	want := filepath.Clean(path)
	for _, d := range domainXML.Devices.Disks {
		if d.Source != nil && filepath.Clean(d.Source.File) == want {
			return d, true
		}
	}
	return DomainDisk{}, false
}

// modifyFlags 运行中的虚拟机同时修改 live 与持久配置
func (c *Client) modifyFlags(domain libvirt.Domain) (uint32, error) {
	state, _, err := c.conn.DomainGetState(domain, 0)
	if err != nil {
		return 0, fmt.Errorf("get domain state: %w", err)
	}
	if libvirt.DomainState(state) == libvirt.DomainRunning {
		return uint32(libvirt.DomainDeviceModifyLive | libvirt.DomainDeviceModifyConfig), nil
	}
	return uint32(libvirt.DomainDeviceModifyConfig), nil
}

func (c *Client) domainXML(domain libvirt.Domain) (*DomainXML, error) {
	xmlDesc, err := c.conn.DomainGetXMLDesc(domain, 0)
	if err != nil {
		return nil, fmt.Errorf("get domain XML: %w", err)
	}
	var domainXML DomainXML
	if err := xml.Unmarshal([]byte(xmlDesc), &domainXML); err != nil {
		return nil, fmt.Errorf("unmarshal domain XML: %w", err)
	}
	return &domainXML, nil
}

// DeployVM 定义并启动虚拟机
func (c *Client) DeployVM(spec *VMSpec, isoPath string) error {
	if spec.Name == "" {
		return errors.New("domain name is required")
	}
	existing, err := c.FindVM(spec.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Running {
			return nil
		}
		return c.SetState(existing, StateStart)
	}

	domainXML := buildDomainXML(spec, isoPath, c.cfg.Bridge)
	xmlBytes, err := xml.MarshalIndent(domainXML, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal domain XML: %v", err)
	}

	domain, err := c.conn.DomainDefineXML(string(xmlBytes))
	if err != nil {
		return fmt.Errorf("failed to define domain: %v", err)
	}
	if err := c.conn.DomainCreate(domain); err != nil {
		_ = c.conn.DomainUndefine(domain)
		return fmt.Errorf("failed to start domain %s: %v", spec.Name, err)
	}
	return nil
}

// DestroyVM 强制关闭并删除虚拟机定义，磁盘文件保持不动
func (c *Client) DestroyVM(spec *VMSpec) error {
	vm, err := c.FindVM(spec.Name)
	if err != nil {
		return err
	}
	if vm == nil {
		return nil
	}

	if vm.Running {
		if err := c.conn.DomainDestroy(vm.domain); err != nil {
			return fmt.Errorf("failed to destroy running domain: %v", err)
		}
	}

	flags := libvirt.DomainUndefineManagedSave | libvirt.DomainUndefineSnapshotsMetadata | libvirt.DomainUndefineNvram
	if err := c.conn.DomainUndefineFlags(vm.domain, flags); err != nil {
		return fmt.Errorf("failed to undefine domain: %v", err)
	}
	return nil
}

// MigrateVM 在线迁移虚拟机到目标主机
func (c *Client) MigrateVM(vmName, destAddress string) error {
	dest := fmt.Sprintf(c.cfg.MigrateURIFormat, destAddress)
	flags := libvirt.MigrateLive | libvirt.MigratePeer2peer | libvirt.MigratePersistDest | libvirt.MigrateUndefineSource
	if err := c.conn.Migrate(vmName, dest, flags); err != nil {
		return fmt.Errorf("migrate %s to %s: %w", vmName, dest, err)
	}
	return nil
}

// buildDomainXML 根据部署描述构建 DomainXML
func buildDomainXML(spec *VMSpec, isoPath, bridge string) *DomainXML {
	memKiB := spec.MemoryBytes / 1024
	domain := &DomainXML{
		Type:          "kvm",
		Name:          spec.Name,
		Description:   spec.BootArgs,
		Memory:        DomainMemory{Unit: "KiB", Value: memKiB},
		CurrentMemory: DomainMemory{Unit: "KiB", Value: memKiB},
		VCPU:          DomainVCPU{Placement: "static", Value: max(spec.CPUs, 1)},
		OS: DomainOS{
			Type: DomainOSType{Arch: "x86_64", Value: "hvm"},
			Boot: []DomainBoot{{Dev: "hd"}, {Dev: "cdrom"}},
		},
		Features:   &DomainFeatures{ACPI: &struct{}{}, APIC: &struct{}{}},
		Clock:      &DomainClock{Offset: "utc"},
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "destroy",
		Devices: DomainDevices{
			Controllers: []DomainController{{Type: "scsi", Index: 0, Model: "virtio-scsi"}},
			Graphics:    []DomainGraphics{{Type: "vnc", Port: -1, Autoport: "yes", Listen: "0.0.0.0"}},
		},
	}

	cdroms := 0
	for _, d := range spec.Disks {
		if d.ISO {
			domain.Devices.Disks = append(domain.Devices.Disks, cdromDisk(d.Path, cdroms))
			cdroms++
			continue
		}
		domain.Devices.Disks = append(domain.Devices.Disks, DomainDisk{
			Type:   "file",
			Device: "disk",
			Driver: DomainDiskDriver{Name: "qemu", Type: qemuimg.DriverFormat(d.Format)},
			Source: &DomainDiskSrc{File: d.Path},
			Target: DomainDiskTarget{Dev: diskTarget("vd", d.Sequence), Bus: "virtio"},
		})
	}
	if isoPath != "" {
		domain.Devices.Disks = append(domain.Devices.Disks, cdromDisk(isoPath, cdroms))
	}

	for _, nic := range spec.NICs {
		iface := DomainInterface{
			Type:   "bridge",
			Source: DomainInterfaceSource{Bridge: bridge},
			Model:  DomainInterfaceModel{Type: "virtio"},
		}
		if nic.Bridge != "" {
			iface.Source.Bridge = nic.Bridge
		}
		if nic.MAC != "" {
			iface.MAC = &DomainInterfaceMAC{Address: nic.MAC}
		}
		domain.Devices.Interfaces = append(domain.Devices.Interfaces, iface)
	}

	return domain
}

func cdromDisk(path string, index int) DomainDisk {
	return DomainDisk{
		Type:     "file",
		Device:   "cdrom",
		Driver:   DomainDiskDriver{Name: "qemu", Type: "raw"},
		Source:   &DomainDiskSrc{File: path},
		Target:   DomainDiskTarget{Dev: diskTarget("sd", index), Bus: "scsi"},
		ReadOnly: &struct{}{},
	}
}

// diskTarget 把序号转换为设备名：0 -> vda, 25 -> vdz, 26 -> vdaa
func diskTarget(prefix string, sequence int) string {
	if sequence < 0 {
		sequence = 0
	}
	suffix := ""
	for n := sequence; ; n = n/26 - 1 {
		suffix = string(rune('a'+n%26)) + suffix
		if n < 26 {
			break
		}
	}
	return prefix + suffix
}

// diskFormat 根据扩展名推断 qemu 磁盘驱动格式
func diskFormat(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return qemuimg.DriverFormat(ext)
}
