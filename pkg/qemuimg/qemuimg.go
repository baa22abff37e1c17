package qemuimg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Client 封装 qemu-img 命令行工具的操作
type Client struct {
	qemuImgPath string
	timeout     time.Duration
}

// ImageInfo 是 qemu-img info --output=json 的子集
type ImageInfo struct {
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	VirtualSize uint64 `json:"virtual-size"`
	ActualSize  uint64 `json:"actual-size"`
}

var _ QemuImgClient = (*Client)(nil)

// New 创建新的 qemuimg client
// qemuImgPath 是 qemu-img 的路径，如果为空则使用默认的 "qemu-img"
func New(qemuImgPath string) *Client {
	if qemuImgPath == "" {
		qemuImgPath = "qemu-img"
	}
	return &Client{
		qemuImgPath: qemuImgPath,
		timeout:     30 * time.Minute,
	}
}

// WithTimeout 设置操作超时时间
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// DriverFormat 把磁盘文件格式映射为 qemu-img 的格式名
// VHD 在 qemu 中叫 vpc
func DriverFormat(format string) string {
	switch f := strings.ToLower(format); f {
	case "vhd":
		return "vpc"
	case "":
		return "raw"
	default:
		return f
	}
}

// CreateEmpty 创建空镜像
//
// 参数：
//   - format: 磁盘文件格式（如 "vhd", "vhdx", "qcow2"）
//   - outputFile: 输出文件路径
//   - sizeBytes: 虚拟大小（字节）
//
// 示例：
//
//	err := client.CreateEmpty(ctx, "vhdx", "/pool/v1.vhdx", 10<<30)
func (c *Client) CreateEmpty(ctx context.Context, format, outputFile string, sizeBytes uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"create", "-f", DriverFormat(format)}
	if DriverFormat(format) == "vpc" {
		// 动态 VHD，对应 Hyper-V 的 dynamic virtual hard disk
		args = append(args, "-o", "subformat=dynamic")
	}
	args = append(args, outputFile, fmt.Sprintf("%d", sizeBytes))

	cmd := exec.CommandContext(ctx, c.qemuImgPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w, output: %s", outputFile, err, string(output))
	}

	return nil
}

// Info 获取镜像信息
//
// 示例：
//
//	info, err := client.Info(ctx, "/pool/v1.vhd")
//	fmt.Println(info.VirtualSize)
func (c *Client) Info(ctx context.Context, imagePath string) (*ImageInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.qemuImgPath, "info", "--output=json", imagePath)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get image info for %s: %w", imagePath, err)
	}

	return parseInfo(output)
}

func parseInfo(output []byte) (*ImageInfo, error) {
	var info ImageInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse qemu-img info output: %w", err)
	}
	return &info, nil
}
