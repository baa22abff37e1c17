package storage

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// Object 卷和模板共有的字段
type Object struct {
	ID       string
	UUID     string
	Name     string
	Path     string
	Format   string
	Checksum string
	Size     int64
	VMName   string

	Store   DataStore
	StoreTO command.Typed

	// 原始字段，回写时保留调用方传入的其他字段
	raw map[string]json.RawMessage
}

// VolumeObject 卷
type VolumeObject struct{ Object }

// TemplateObject 模板
type TemplateObject struct{ Object }

// DataObject 卷或模板
type DataObject interface {
	Base() *Object
	TypeName() string
}

func (o *Object) Base() *Object { return o }

func (*VolumeObject) TypeName() string   { return command.VolumeObjectTO }
func (*TemplateObject) TypeName() string { return command.TemplateObjectTO }

func (*VolumeObject) storeKey() string   { return "dataStore" }
func (*TemplateObject) storeKey() string { return "imageDataStore" }

// FileName 由 uuid 和格式推导出的文件名
func (o *Object) FileName() string {
	if o.Format == "" {
		return o.UUID
	}
	return o.UUID + "." + strings.ToLower(o.Format)
}

// ChecksumValue 返回去掉算法前缀（如 {MD5}）后的校验和
func (o *Object) ChecksumValue() string {
	c := strings.TrimSpace(o.Checksum)
	if strings.HasPrefix(c, "{") {
		if i := strings.Index(c, "}"); i > 0 {
			c = c[i+1:]
		}
	}
	return c
}

type objectFields struct {
	ID             json.RawMessage `json:"id"`
	UUID           string          `json:"uuid"`
	Name           string          `json:"name"`
	Path           string          `json:"path"`
	Format         string          `json:"format"`
	Checksum       string          `json:"checksum"`
	Size           json.RawMessage `json:"size"`
	VMName         string          `json:"vmName"`
	DataStore      command.Typed   `json:"dataStore"`
	ImageDataStore command.Typed   `json:"imageDataStore"`
}

// ParseDataObject 解析 VolumeObjectTO 或 TemplateObjectTO
func ParseDataObject(t command.Typed) (DataObject, error) {
	if t.IsZero() {
		return nil, apierror.Invalidf("data object is missing")
	}

	var f objectFields
	if err := t.Decode(&f); err != nil {
		return nil, apierror.Invalidf("%v", err)
	}
	var raw map[string]json.RawMessage
	if err := t.Decode(&raw); err != nil {
		return nil, apierror.Invalidf("%v", err)
	}

	base := Object{
		ID:       scalar(f.ID),
		UUID:     f.UUID,
		Name:     f.Name,
		Path:     f.Path,
		Format:   f.Format,
		Checksum: f.Checksum,
		VMName:   f.VMName,
		raw:      raw,
	}
	if s := scalar(f.Size); s != "" {
		size, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, apierror.Invalidf("invalid size %q of %s", s, t.Type)
		}
		base.Size = size
	}

	var obj DataObject
	switch t.Type {
	case command.VolumeObjectTO:
		base.StoreTO = f.DataStore
		obj = &VolumeObject{Object: base}
	case command.TemplateObjectTO:
		base.StoreTO = f.ImageDataStore
		obj = &TemplateObject{Object: base}
	default:
		return nil, apierror.Unsupportedf("unsupported data object type %s", t.Type)
	}

	if base.StoreTO.IsZero() {
		return nil, apierror.Invalidf("no data store populated in %s %s", t.Type, base.UUID)
	}
	store, err := ParseDataStore(base.StoreTO)
	if err != nil {
		return nil, err
	}
	obj.Base().Store = store
	return obj, nil
}

// Encode 把对象回写为类型化对象，保留原始字段并覆盖可能被修改的字段
func Encode(obj DataObject) (command.Typed, error) {
	o := obj.Base()
	out := make(map[string]any, len(o.raw)+8)
	for k, v := range o.raw {
		out[k] = v
	}

	setString := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	setString("uuid", o.UUID)
	setString("name", o.Name)
	setString("path", o.Path)
	setString("format", o.Format)
	setString("checksum", o.Checksum)
	setString("vmName", o.VMName)
	if o.Size != 0 {
		out["size"] = o.Size
	}

	key := "dataStore"
	if k, ok := obj.(interface{ storeKey() string }); ok {
		key = k.storeKey()
	}
	if !o.StoreTO.IsZero() {
		out[key] = o.StoreTO
	}
	return command.Wrap(obj.TypeName(), out)
}

func scalar(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}
