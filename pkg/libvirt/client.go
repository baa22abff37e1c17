package libvirt

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/hostagent/pkg/qemuimg"
)

// Config 控制面配置
type Config struct {
	// URI libvirt 连接地址，默认 qemu:///system
	URI string
	// MigrateURIFormat 迁移目标地址模板，%s 替换为目标主机地址
	MigrateURIFormat string
	// DiskFolder 默认虚拟磁盘目录，作为本地主存储池
	DiskFolder string
	// DataRoot 默认数据目录，缓存 systemvm ISO 等文件
	DataRoot string
	// Bridge 网卡默认桥接的网桥
	Bridge string
	// StatsInterval 计算 CPU 利用率时两次采样的间隔
	StatsInterval time.Duration
}

type Client struct {
	conn    *libvirt.Libvirt
	cfg     Config
	qemuImg qemuimg.QemuImgClient
}

var _ LibvirtClient = (*Client)(nil)

func New(cfg Config, qemuImg qemuimg.QemuImgClient) (*Client, error) {
	if cfg.URI == "" {
		cfg.URI = string(libvirt.QEMUSystem)
	}
	if cfg.MigrateURIFormat == "" {
		cfg.MigrateURIFormat = "qemu+tcp://%s/system"
	}
	if cfg.Bridge == "" {
		cfg.Bridge = "br0"
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 500 * time.Millisecond
	}

	uri, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("parse libvirt uri %s: %w", cfg.URI, err)
	}
	l, err := libvirt.ConnectToURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &Client{conn: l, cfg: cfg, qemuImg: qemuImg}, nil
}

// Close 断开 libvirt 连接
func (c *Client) Close() error {
	return c.conn.Disconnect()
}

// formatLibvirtVersion converts libvirt version number to human readable format
// libvirt version is encoded as: major * 1000000 + minor * 1000 + micro
// For example: 8003000 = 8.3.0
func formatLibvirtVersion(version uint64) string {
	major := version / 1000000
	minor := (version % 1000000) / 1000
	micro := version % 1000
	return fmt.Sprintf("%d.%d.%d", major, minor, micro)
}

// HypervisorVersion 返回 hypervisor 版本
func (c *Client) HypervisorVersion() (string, error) {
	v, err := c.conn.ConnectGetVersion()
	if err != nil {
		return "", fmt.Errorf("get hypervisor version: %w", err)
	}
	return formatLibvirtVersion(v), nil
}

func (c *Client) GetDefaultVirtualDiskFolder() string {
	return c.cfg.DiskFolder
}

func (c *Client) GetDefaultDataRoot() string {
	return c.cfg.DataRoot
}

// CreateDisk 创建动态扩展的空磁盘，格式由文件扩展名决定
func (c *Client) CreateDisk(ctx context.Context, sizeBytes uint64, path string) error {
	return c.qemuImg.CreateEmpty(ctx, diskFormat(path), path, sizeBytes)
}

// DiskVirtualSize 读取磁盘文件的虚拟大小
func (c *Client) DiskVirtualSize(ctx context.Context, path string) (uint64, error) {
	info, err := c.qemuImg.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.VirtualSize, nil
}
