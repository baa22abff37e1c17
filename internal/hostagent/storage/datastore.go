// Package storage 解析命令中的磁盘、卷、模板描述，并计算其本地路径
package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// DataStore 数据存储描述，只有下面四种实现
type DataStore interface {
	// Location 返回用于日志和持久化的位置描述，不含凭据
	Location() string
	isDataStore()
}

// LocalStore 本地主存储
type LocalStore struct {
	UUID string
	Path string
}

// ShareStore 网络主存储（SMB/CIFS 或 NFS 共享）
type ShareStore struct {
	UUID     string
	PoolType PoolType
	Share    share.Share
}

// NFSStore 二级存储
type NFSStore struct {
	URI   string
	Share share.Share
}

// ObjectStore 对象存储（S3 兼容）
type ObjectStore struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseTLS    bool
}

func (LocalStore) isDataStore()  {}
func (ShareStore) isDataStore()  {}
func (NFSStore) isDataStore()    {}
func (ObjectStore) isDataStore() {}

func (s LocalStore) Location() string  { return s.Path }
func (s ShareStore) Location() string  { return s.Share.UNC() }
func (s NFSStore) Location() string    { return s.Share.UNC() }
func (s ObjectStore) Location() string { return s.Endpoint + "/" + s.Bucket }

type primaryDataStoreTO struct {
	UUID     string `json:"uuid"`
	PoolType string `json:"poolType"`
	Host     string `json:"host"`
	Path     string `json:"path"`
	URL      string `json:"url"`
}

type nfsTO struct {
	URL  string `json:"_url"`
	Role string `json:"_role"`
}

type s3TO struct {
	AccessKey  string `json:"accessKey"`
	SecretKey  string `json:"secretKey"`
	EndPoint   string `json:"endPoint"`
	BucketName string `json:"bucketName"`
	HTTPSFlag  bool   `json:"httpsFlag"`
}

// ParseDataStore 把类型化对象解析为具体的数据存储
func ParseDataStore(t command.Typed) (DataStore, error) {
	if t.IsZero() {
		return nil, apierror.Invalidf("no data store populated")
	}

	switch t.Type {
	case command.PrimaryDataStoreTO:
		var to primaryDataStoreTO
		if err := t.Decode(&to); err != nil {
			return nil, apierror.Invalidf("%v", err)
		}
		return parsePrimary(&to)

	case command.NfsTO:
		var to nfsTO
		if err := t.Decode(&to); err != nil {
			return nil, apierror.Invalidf("%v", err)
		}
		s, err := share.ParseURI(to.URL)
		if err != nil {
			return nil, apierror.Invalidf("invalid secondary storage url: %v", err)
		}
		return NFSStore{URI: to.URL, Share: *s}, nil

	case command.S3TO:
		var to s3TO
		if err := t.Decode(&to); err != nil {
			return nil, apierror.Invalidf("%v", err)
		}
		if to.BucketName == "" {
			return nil, apierror.Invalidf("object store has no bucket")
		}
		return ObjectStore{
			Endpoint:  to.EndPoint,
			Bucket:    to.BucketName,
			AccessKey: to.AccessKey,
			SecretKey: to.SecretKey,
			UseTLS:    to.HTTPSFlag,
		}, nil

	default:
		return nil, apierror.Unsupportedf("unsupported data store type %s", t.Type)
	}
}

func parsePrimary(to *primaryDataStoreTO) (DataStore, error) {
	poolType, err := ParsePoolType(to.PoolType)
	if err != nil {
		return nil, err
	}
	if poolType == PoolFilesystem {
		return LocalStore{UUID: to.UUID, Path: to.Path}, nil
	}

	s := share.Share{
		Scheme: "cifs",
		Host:   to.Host,
		Export: to.Path,
	}
	if poolType == PoolNetworkFilesystem {
		s.Scheme = "nfs"
	}
	if to.URL != "" {
		if u, err := url.Parse(to.URL); err == nil {
			q := u.Query()
			s.User = q.Get("user")
			s.Password = q.Get("password")
			s.Domain = q.Get("domain")
			if s.Host == "" {
				s.Host = u.Hostname()
			}
			if s.Export == "" {
				s.Export = u.Path
			}
		}
	}
	if s.Host == "" {
		return nil, apierror.Invalidf("primary storage %s has no host", to.UUID)
	}
	if !strings.HasPrefix(s.Export, "/") {
		s.Export = "/" + s.Export
	}
	return ShareStore{UUID: to.UUID, PoolType: poolType, Share: s}, nil
}

// IsPrimary 判断是否为主存储
func IsPrimary(ds DataStore) bool {
	switch ds.(type) {
	case LocalStore, ShareStore:
		return true
	}
	return false
}

// Kind 返回数据存储的类型名，用于错误信息
func Kind(ds DataStore) string {
	switch ds.(type) {
	case LocalStore:
		return "local primary"
	case ShareStore:
		return "network primary"
	case NFSStore:
		return "nfs secondary"
	case ObjectStore:
		return "object store"
	}
	return fmt.Sprintf("%T", ds)
}
