package storage

import (
	"strings"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// PoolType 存储池类型
type PoolType string

const (
	PoolFilesystem        PoolType = "Filesystem"
	PoolNetworkFilesystem PoolType = "NetworkFilesystem"
	PoolSMB               PoolType = "SMB"
)

// 能识别但本 agent 不支持的池类型
var knownPoolTypes = []string{
	"IscsiLUN", "Iscsi", "ISO", "LVM", "CLVM", "RBD", "SharedMountPoint",
	"VMFS", "PreSetup", "EXT", "OCFS2", "Gluster", "ManagedNFS",
}

// ParsePoolType 校验池类型
func ParsePoolType(s string) (PoolType, error) {
	for _, t := range []PoolType{PoolFilesystem, PoolNetworkFilesystem, PoolSMB} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	for _, k := range knownPoolTypes {
		if strings.EqualFold(s, k) {
			return "", apierror.Unsupportedf("Pool type %s is not supported", s)
		}
	}
	return "", apierror.Invalidf("Unknown pool type %q", s)
}

// IsNetwork 网络池需要挂载
func (t PoolType) IsNetwork() bool {
	return t == PoolNetworkFilesystem || t == PoolSMB
}

// Scheme 返回网络池对应的共享协议
func (t PoolType) Scheme() string {
	if t == PoolNetworkFilesystem {
		return "nfs"
	}
	return "cifs"
}
