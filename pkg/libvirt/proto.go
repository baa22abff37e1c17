package libvirt

import "encoding/xml"

// DomainXML represents the subset of the domain XML the agent reads and writes
// Reference: https://libvirt.org/formatdomain.html
type DomainXML struct {
	XMLName xml.Name `xml:"domain"`
	Type    string   `xml:"type,attr"`

	Name        string `xml:"name"`
	UUID        string `xml:"uuid,omitempty"`
	Description string `xml:"description,omitempty"` // Boot arguments handed to system VMs

	Memory        DomainMemory `xml:"memory"`
	CurrentMemory DomainMemory `xml:"currentMemory,omitempty"`
	VCPU          DomainVCPU   `xml:"vcpu"`

	OS       DomainOS        `xml:"os"`
	Features *DomainFeatures `xml:"features,omitempty"`
	Clock    *DomainClock    `xml:"clock,omitempty"`

	OnPoweroff string `xml:"on_poweroff,omitempty"`
	OnReboot   string `xml:"on_reboot,omitempty"`
	OnCrash    string `xml:"on_crash,omitempty"`

	Devices DomainDevices `xml:"devices"`
}

// DomainMemory represents memory configuration
type DomainMemory struct {
	Unit  string `xml:"unit,attr"`
	Value uint64 `xml:",chardata"`
}

// DomainVCPU represents virtual CPU configuration
type DomainVCPU struct {
	Placement string `xml:"placement,attr"`
	Value     int    `xml:",chardata"`
}

// DomainOS represents operating system configuration
type DomainOS struct {
	Type DomainOSType `xml:"type"`
	Boot []DomainBoot `xml:"boot"`
}

// DomainOSType represents OS type details
type DomainOSType struct {
	Arch  string `xml:"arch,attr,omitempty"`
	Value string `xml:",chardata"`
}

// DomainBoot represents boot configuration
type DomainBoot struct {
	Dev string `xml:"dev,attr"`
}

// DomainFeatures represents hypervisor features
type DomainFeatures struct {
	ACPI *struct{} `xml:"acpi,omitempty"`
	APIC *struct{} `xml:"apic,omitempty"`
}

// DomainClock represents clock configuration
type DomainClock struct {
	Offset string `xml:"offset,attr"`
}

// DomainDevices represents the devices the agent manages
type DomainDevices struct {
	Emulator    string             `xml:"emulator,omitempty"`
	Disks       []DomainDisk       `xml:"disk"`
	Controllers []DomainController `xml:"controller,omitempty"`
	Interfaces  []DomainInterface  `xml:"interface"`
	Graphics    []DomainGraphics   `xml:"graphics"`
}

// DomainDisk represents a disk device
type DomainDisk struct {
	XMLName  xml.Name         `xml:"disk"`
	Type     string           `xml:"type,attr"`
	Device   string           `xml:"device,attr"`
	Driver   DomainDiskDriver `xml:"driver"`
	Source   *DomainDiskSrc   `xml:"source,omitempty"`
	Target   DomainDiskTarget `xml:"target"`
	ReadOnly *struct{}        `xml:"readonly,omitempty"`
}

// DomainDiskDriver represents disk driver configuration
type DomainDiskDriver struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// DomainDiskSrc represents disk source configuration
type DomainDiskSrc struct {
	File string `xml:"file,attr,omitempty"`
}

// DomainDiskTarget represents disk target configuration
type DomainDiskTarget struct {
	Dev string `xml:"dev,attr"`
	Bus string `xml:"bus,attr"`
}

// DomainController represents a controller device
type DomainController struct {
	Type  string `xml:"type,attr"`
	Index int    `xml:"index,attr"`
	Model string `xml:"model,attr,omitempty"`
}

// DomainInterface represents a network interface
type DomainInterface struct {
	Type   string                `xml:"type,attr"`
	MAC    *DomainInterfaceMAC   `xml:"mac,omitempty"`
	Source DomainInterfaceSource `xml:"source"`
	Model  DomainInterfaceModel  `xml:"model"`
}

// DomainInterfaceMAC represents the MAC address of an interface
type DomainInterfaceMAC struct {
	Address string `xml:"address,attr"`
}

// DomainInterfaceSource represents network interface source
type DomainInterfaceSource struct {
	Bridge string `xml:"bridge,attr,omitempty"`
}

// DomainInterfaceModel represents network interface model
type DomainInterfaceModel struct {
	Type string `xml:"type,attr"`
}

// DomainGraphics represents graphics configuration
type DomainGraphics struct {
	Type     string `xml:"type,attr"`
	Port     int    `xml:"port,attr,omitempty"`
	Autoport string `xml:"autoport,attr,omitempty"`
	Listen   string `xml:"listen,attr,omitempty"`
}
