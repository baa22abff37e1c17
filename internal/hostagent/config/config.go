package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address 是 HTTP 监听地址
	// 可以通过环境变量 HOSTAGENT_ADDRESS 配置
	Address string `yaml:"address"`

	// LibvirtURI 是 libvirt 连接 URI
	// 可以通过环境变量 LIBVIRT_URI 配置，默认 qemu:///system
	LibvirtURI string `yaml:"libvirt_uri"`

	// DataDir 是 agent 数据目录，数据库、磁盘、ISO 缓存都在这里
	// 可以通过环境变量 HOSTAGENT_DATA_DIR 配置
	DataDir string `yaml:"data_dir"`

	// MountRoot 是远程共享的挂载根目录，默认 <DataDir>/mnt
	MountRoot string `yaml:"mount_root"`

	// DiskFolder 默认的虚拟磁盘目录，默认 <DataDir>/disks
	DiskFolder string `yaml:"disk_folder"`

	// Bridge 虚拟机网卡默认接入的网桥
	Bridge string `yaml:"bridge"`

	Host HostSettings `yaml:"host"`
}

// HostSettings 主机资源配置的原始值，由 NewHostConfig 校验
type HostSettings struct {
	PrivateIPAddress string `yaml:"private_ip_address"`
	StorageIPAddress string `yaml:"storage_ip_address"`
	GatewayIPAddress string `yaml:"gateway_ip_address"`

	// RootDeviceName 根设备挂载点，位于根设备上的本地池会扣除保留空间
	RootDeviceName               string `yaml:"root_device_name"`
	RootDeviceReservedSpaceBytes int64  `yaml:"root_device_reserved_space_bytes"`

	// ParentPartitionMinMemoryMB 宿主机自身保留的内存
	ParentPartitionMinMemoryMB uint64 `yaml:"parent_partition_min_memory_mb"`

	// LocalSecondaryStoragePath 已挂载到本机的二级存储目录
	LocalSecondaryStoragePath string `yaml:"local_secondary_storage_path"`

	// SystemVMISO 系统虚拟机 ISO 的初始路径，为空时首次启动系统虚拟机时查找
	SystemVMISO string `yaml:"systemvm_iso"`

	Pod     string `yaml:"pod"`
	Zone    string `yaml:"zone"`
	Cluster string `yaml:"cluster"`
}

// New 读取配置文件（可选）并应用环境变量覆盖
func New(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.MountRoot == "" {
		cfg.MountRoot = filepath.Join(cfg.DataDir, "mnt")
	}
	if cfg.DiskFolder == "" {
		cfg.DiskFolder = filepath.Join(cfg.DataDir, "disks")
	}
	return cfg, nil
}

// DatabasePath 存储池路径数据库的位置
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "hostagent.db")
}

// ISODir 系统虚拟机 ISO 的本地缓存目录
func (c *Config) ISODir() string {
	return filepath.Join(c.DataDir, "iso")
}

func defaults() *Config {
	return &Config{
		Address:    "0.0.0.0:8250",
		LibvirtURI: "qemu:///system",
		DataDir:    getDataDir(),
		Bridge:     "br0",
		Host: HostSettings{
			RootDeviceName:               "/",
			RootDeviceReservedSpaceBytes: 4 << 30,
			ParentPartitionMinMemoryMB:   2048,
		},
	}
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("HOSTAGENT_ADDRESS"); addr != "" {
		cfg.Address = addr
	}
	if uri := getLibvirtURI(); uri != "" {
		cfg.LibvirtURI = uri
	}
	if dir := os.Getenv("HOSTAGENT_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if ip := os.Getenv("HOSTAGENT_PRIVATE_IP"); ip != "" {
		cfg.Host.PrivateIPAddress = ip
	}
	if ip := os.Getenv("HOSTAGENT_STORAGE_IP"); ip != "" {
		cfg.Host.StorageIPAddress = ip
	}
	if p := os.Getenv("HOSTAGENT_SECONDARY_STORAGE"); p != "" {
		cfg.Host.LocalSecondaryStoragePath = p
	}
}

// getLibvirtURI 获取 libvirt URI，优先使用 LIBVIRT_URI
func getLibvirtURI() string {
	if uri := os.Getenv("LIBVIRT_URI"); uri != "" {
		return uri
	}
	return os.Getenv("HOSTAGENT_LIBVIRT_URI")
}

// getDataDir 获取数据目录，无法获取主目录时使用当前目录下的 data
func getDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "hostagent")
	}
	return filepath.Join(".", "data")
}
