package storage

import (
	"encoding/json"
	"strings"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// DiskType 卷类型
type DiskType string

const (
	DiskRoot     DiskType = "ROOT"
	DiskSwap     DiskType = "SWAP"
	DiskDataDisk DiskType = "DATADISK"
	DiskISO      DiskType = "ISO"
)

// ParseDiskType 校验卷类型，不认识的值返回错误
func ParseDiskType(s string) (DiskType, error) {
	switch t := DiskType(strings.ToUpper(strings.TrimSpace(s))); t {
	case DiskRoot, DiskSwap, DiskDataDisk, DiskISO:
		return t, nil
	}
	return "", apierror.Invalidf("unsupported disk type %q", s)
}

// Extension 空白卷文件使用的扩展名
func (t DiskType) Extension() string {
	return strings.ToLower(string(t))
}

// DiskRef 待挂载或卸载的磁盘
type DiskRef struct {
	Type DiskType
	Seq  int
	Data DataObject
}

type diskTO struct {
	Data    command.Typed `json:"data"`
	DiskSeq *int          `json:"diskSeq"`
	Type    string        `json:"type"`
}

// ParseDiskRef 解析 DiskTO，先校验类型再解析数据对象
func ParseDiskRef(raw json.RawMessage) (*DiskRef, error) {
	var to diskTO
	if err := json.Unmarshal(raw, &to); err != nil {
		return nil, apierror.Invalidf("invalid disk: %v", err)
	}

	diskType, err := ParseDiskType(to.Type)
	if err != nil {
		return nil, err
	}

	data, err := ParseDataObject(to.Data)
	if err != nil {
		return nil, err
	}

	ref := &DiskRef{Type: diskType, Data: data}
	if to.DiskSeq != nil {
		ref.Seq = *to.DiskSeq
	}
	return ref, nil
}
