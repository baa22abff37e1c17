package share

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Connector 建立到远程共享的连接，返回本地可访问的目录
type Connector interface {
	Connect(ctx context.Context, s *Share) (string, error)
}

// Runner 执行外部命令
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MountConnector 通过 mount(8) 把共享挂载到 root/<host>/<export>
type MountConnector struct {
	root       string
	run        Runner
	mountTable string

	mu sync.Mutex
}

var _ Connector = (*MountConnector)(nil)

// NewMountConnector 创建挂载器，root 为所有挂载点的父目录
func NewMountConnector(root string) *MountConnector {
	return &MountConnector{
		root:       root,
		run:        execRunner,
		mountTable: "/proc/self/mounts",
	}
}

// MountPoint 返回共享对应的本地挂载点
func (m *MountConnector) MountPoint(s *Share) string {
	export := strings.ReplaceAll(strings.Trim(s.Export, "/"), "/", "_")
	if export == "" {
		export = "_"
	}
	return filepath.Join(m.root, s.Host, export)
}

// Connect 挂载共享，已挂载时直接返回挂载点
func (m *MountConnector) Connect(ctx context.Context, s *Share) (string, error) {
	logger := zerolog.Ctx(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	mountPoint := m.MountPoint(s)
	mounted, err := m.isMounted(mountPoint)
	if err != nil {
		return "", err
	}
	if mounted {
		return mountPoint, nil
	}

	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return "", fmt.Errorf("create mount point %s: %w", mountPoint, err)
	}

	args := mountArgs(s, mountPoint)
	logger.Info().
		Str("share", s.String()).
		Str("mount_point", mountPoint).
		Msg("Mounting remote share")

	if output, err := m.run(ctx, "mount", args...); err != nil {
		return "", fmt.Errorf("mount %s: %w, output: %s", s, err, strings.TrimSpace(string(output)))
	}
	return mountPoint, nil
}

func mountArgs(s *Share, mountPoint string) []string {
	if s.Scheme == "nfs" {
		return []string{"-t", "nfs", s.Host + ":" + s.Export, mountPoint}
	}

	opts := []string{}
	if s.User != "" {
		opts = append(opts, "username="+s.User)
		opts = append(opts, "password="+s.Password)
	} else {
		opts = append(opts, "guest")
	}
	if s.Domain != "" {
		opts = append(opts, "domain="+s.Domain)
	}
	return []string{"-t", "cifs", "//" + s.Host + s.Export, mountPoint, "-o", strings.Join(opts, ",")}
}

func (m *MountConnector) isMounted(mountPoint string) (bool, error) {
	f, err := os.Open(m.mountTable)
	if err != nil {
		return false, fmt.Errorf("read mount table: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == mountPoint {
			return true, nil
		}
	}
	return false, scanner.Err()
}
