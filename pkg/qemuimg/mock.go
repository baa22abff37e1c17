package qemuimg

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 QemuImgClient 的 mock 实现
// 用于测试，不需要真实的 qemu-img 命令
type MockClient struct {
	mock.Mock
}

// NewMockClient 创建新的 MockClient
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateEmpty 实现 QemuImgClient 接口
func (m *MockClient) CreateEmpty(ctx context.Context, format, outputFile string, sizeBytes uint64) error {
	args := m.Called(ctx, format, outputFile, sizeBytes)
	return args.Error(0)
}

// Info 实现 QemuImgClient 接口
func (m *MockClient) Info(ctx context.Context, imagePath string) (*ImageInfo, error) {
	args := m.Called(ctx, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ImageInfo), args.Error(1)
}

// TouchFile 返回一个在 CreateEmpty 被调用时写出空文件的 Run 函数
// 用于模拟 qemu-img 真实创建了文件
func TouchFile(args mock.Arguments) {
	_ = os.WriteFile(args.String(2), nil, 0o644)
}
