package qemuimg

import "context"

// QemuImgClient 定义了 qemu-img 客户端的接口
// 用于抽象 qemu-img 操作，便于测试和 mock
type QemuImgClient interface {
	// CreateEmpty 创建空镜像，sizeBytes 为虚拟大小（字节）
	CreateEmpty(ctx context.Context, format, outputFile string, sizeBytes uint64) error
	// Info 获取镜像信息
	Info(ctx context.Context, imagePath string) (*ImageInfo, error)
}
