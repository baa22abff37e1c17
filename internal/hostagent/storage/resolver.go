package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// Resolver 建立到数据存储的连接并计算本地路径
type Resolver struct {
	connector   share.Connector
	defaultRoot string
}

// NewResolver 创建解析器，defaultRoot 是未指定路径的本地主存储使用的目录
func NewResolver(connector share.Connector, defaultRoot string) *Resolver {
	return &Resolver{connector: connector, defaultRoot: defaultRoot}
}

// Root 返回数据存储的本地根目录，网络存储会先挂载
func (r *Resolver) Root(ctx context.Context, ds DataStore) (string, error) {
	switch s := ds.(type) {
	case LocalStore:
		if s.Path != "" {
			return s.Path, nil
		}
		if r.defaultRoot == "" {
			return "", apierror.Invalidf("local primary storage %s has no path", s.UUID)
		}
		zerolog.Ctx(ctx).Debug().
			Str("store_uuid", s.UUID).
			Str("root", r.defaultRoot).
			Msg("Local primary storage has no path, using default virtual disk folder")
		return r.defaultRoot, nil

	case ShareStore:
		return r.connect(ctx, &s.Share)

	case NFSStore:
		return r.connect(ctx, &s.Share)

	case ObjectStore:
		return "", nil
	}
	return "", apierror.Unsupportedf("unsupported data store %T", ds)
}

func (r *Resolver) connect(ctx context.Context, s *share.Share) (string, error) {
	if r.connector == nil {
		return "", apierror.Invalidf("no share connector configured for %s", s)
	}
	root, err := r.connector.Connect(ctx, s)
	if err != nil {
		return "", apierror.IO("Failed to connect "+s.UNC(), err)
	}
	return root, nil
}

// FullPath 计算对象的本地文件路径
// 主存储：root/uuid.format；二级存储：root/path，path 为目录时再追加 uuid.format
func (r *Resolver) FullPath(ctx context.Context, obj DataObject) (string, error) {
	o := obj.Base()
	if o.UUID == "" && !isSecondary(o.Store) {
		return "", apierror.Invalidf("%s has no uuid", obj.TypeName())
	}

	if _, ok := o.Store.(ObjectStore); ok {
		return "", apierror.Unsupportedf("%s in object store has no local path", obj.TypeName())
	}

	root, err := r.Root(ctx, o.Store)
	if err != nil {
		return "", err
	}

	if IsPrimary(o.Store) {
		return filepath.Join(root, o.FileName()), nil
	}
	return secondaryPath(root, o), nil
}

// Dir 返回对象所在目录
func (r *Resolver) Dir(ctx context.Context, obj DataObject) (string, error) {
	p, err := r.FullPath(ctx, obj)
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// ObjectKey 对象存储中的键
func ObjectKey(obj DataObject) string {
	return obj.Base().Path
}

func isSecondary(ds DataStore) bool {
	_, ok := ds.(NFSStore)
	return ok
}

func secondaryPath(root string, o *Object) string {
	p := filepath.Join(root, filepath.FromSlash(o.Path))
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return filepath.Join(p, o.FileName())
	}
	if o.Path == "" || (filepath.Ext(p) == "" && o.Format != "") {
		return filepath.Join(p, o.FileName())
	}
	return p
}
