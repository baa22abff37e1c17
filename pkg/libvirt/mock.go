package libvirt

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 LibvirtClient 的 mock 实现
// 用于测试，不需要真实的 libvirt 连接
type MockClient struct {
	mock.Mock
}

var _ LibvirtClient = (*MockClient)(nil)

// NewTestVM 构造测试用的虚拟机句柄
func NewTestVM(name string, running bool) *VM {
	state := "ShutOff"
	if running {
		state = "Running"
	}
	return &VM{Name: name, State: state, Running: running}
}

func (m *MockClient) FindVM(name string) (*VM, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VM), args.Error(1)
}

func (m *MockClient) SetState(vm *VM, state RequestedState) error {
	args := m.Called(vm, state)
	return args.Error(0)
}

func (m *MockClient) GetVNCPort(vm *VM) (int, error) {
	args := m.Called(vm)
	return args.Int(0), args.Error(1)
}

// 磁盘
func (m *MockClient) AttachDisk(vmName, path string, sequence int) error {
	args := m.Called(vmName, path, sequence)
	return args.Error(0)
}

func (m *MockClient) AttachISO(vmName, path string) error {
	args := m.Called(vmName, path)
	return args.Error(0)
}

func (m *MockClient) DetachDisk(vmName, path string) error {
	args := m.Called(vmName, path)
	return args.Error(0)
}

func (m *MockClient) CreateDisk(ctx context.Context, sizeBytes uint64, path string) error {
	args := m.Called(ctx, sizeBytes, path)
	return args.Error(0)
}

func (m *MockClient) DiskVirtualSize(ctx context.Context, path string) (uint64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(uint64), args.Error(1)
}

// 生命周期
func (m *MockClient) DeployVM(spec *VMSpec, isoPath string) error {
	args := m.Called(spec, isoPath)
	return args.Error(0)
}

func (m *MockClient) DestroyVM(spec *VMSpec) error {
	args := m.Called(spec)
	return args.Error(0)
}

func (m *MockClient) MigrateVM(vmName, destAddress string) error {
	args := m.Called(vmName, destAddress)
	return args.Error(0)
}

// 主机信息
func (m *MockClient) GetProcessorInfo() (*ProcessorInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProcessorInfo), args.Error(1)
}

func (m *MockClient) GetMemoryInfo() (*MemoryInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MemoryInfo), args.Error(1)
}

func (m *MockClient) GetDefaultVirtualDiskFolder() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetDefaultDataRoot() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) HypervisorVersion() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClient) ListVMSync(hostAddress string) (map[string]VMStateEntry, error) {
	args := m.Called(hostAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]VMStateEntry), args.Error(1)
}

func (m *MockClient) GetVMSummaries(vms []*VM) ([]VMSummary, error) {
	args := m.Called(vms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VMSummary), args.Error(1)
}
