package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/internal/hostagent/transfer"
	"github.com/jimyag/hostagent/pkg/apierror"
	"github.com/jimyag/hostagent/pkg/libvirt"
)

type diskRequest struct {
	VMName string          `json:"vmName"`
	Disk   json.RawMessage `json:"disk"`
}

// attachableDisk 只有 ISO 和 DATADISK 可以挂载或卸载
// 类型不对时在解析数据对象之前就返回
func attachableDisk(raw json.RawMessage, vmName, verb string) (*storage.DiskRef, error) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, apierror.Invalidf("invalid disk: %v", err)
	}
	t, err := storage.ParseDiskType(peek.Type)
	if err != nil || (t != storage.DiskISO && t != storage.DiskDataDisk) {
		return nil, apierror.Invalidf("Invalid disk type %s to be %s vm %s", peek.Type, verb, vmName)
	}
	return storage.ParseDiskRef(raw)
}

// Attach 把 ISO 或数据盘挂到虚拟机上
func (s *Service) Attach(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.AttachAnswer, cmd.ContextMap())

	var req diskRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	ans.Set("disk", req.Disk)

	ref, err := attachableDisk(req.Disk, req.VMName, "attached to")
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	// FullPath 会先挂载远端存储
	path, err := s.resolver.FullPath(ctx, ref.Data)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	if ref.Type == storage.DiskISO {
		err = s.hv.AttachISO(req.VMName, path)
	} else {
		err = s.hv.AttachDisk(req.VMName, path, ref.Seq)
	}
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("vm_name", req.VMName).
		Str("disk_type", string(ref.Type)).
		Str("path", path).
		Msg("Disk attached")
	return ans.Succeed("")
}

// Dettach 从虚拟机卸载 ISO 或数据盘
func (s *Service) Dettach(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.DettachAnswer, cmd.ContextMap())

	var req diskRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	ref, err := attachableDisk(req.Disk, req.VMName, "dettached from")
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	path, err := s.resolver.FullPath(ctx, ref.Data)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if err := s.hv.DetachDisk(req.VMName, path); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("vm_name", req.VMName).
		Str("path", path).
		Msg("Disk detached")
	return ans.Succeed("")
}

// removeVolume 删除卷文件，vmName 不为空时先卸载
// 文件已经不存在视为成功
func (s *Service) removeVolume(ctx context.Context, path, vmName string) error {
	logger := zerolog.Ctx(ctx)

	if !transfer.Exists(path) {
		logger.Info().Str("path", path).Msg("Volume already deleted")
		return nil
	}

	if vmName != "" {
		err := s.hv.DetachDisk(vmName, path)
		switch {
		case errors.Is(err, libvirt.ErrDiskNotAttached):
			logger.Debug().Str("vm_name", vmName).Str("path", path).Msg("Volume is not attached")
		case err != nil:
			return err
		}
	}

	if _, err := transfer.RemoveIfExists(ctx, path); err != nil {
		return err
	}
	return nil
}

// Destroy 删除 volume.path 指向的卷文件
func (s *Service) Destroy(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.Answer, cmd.ContextMap())

	var req struct {
		VMName string `json:"vmName"`
		Volume *struct {
			Path string `json:"path"`
		} `json:"volume"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if req.Volume == nil {
		return failed(ctx, ans, cmd, apierror.Invalidf("No 'volume' details in %s", shortName(cmd.Name)))
	}
	if req.Volume.Path == "" {
		return failed(ctx, ans, cmd, apierror.Invalidf("No valid path in %s", shortName(cmd.Name)))
	}

	if err := s.removeVolume(ctx, req.Volume.Path, req.VMName); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	return ans.Succeed("")
}

// Delete 删除数据对象对应的文件
func (s *Service) Delete(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.Answer, cmd.ContextMap())

	var req struct {
		Data command.Typed `json:"data"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	obj, err := storage.ParseDataObject(req.Data)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	path, err := s.resolver.FullPath(ctx, obj)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	if err := s.removeVolume(ctx, path, obj.Base().VMName); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	return ans.Succeed("")
}

// storagePoolTO CreateCommand 中的 pool
type storagePoolTO struct {
	ID   json.RawMessage `json:"id"`
	UUID string          `json:"uuid"`
	Host string          `json:"host"`
	Path string          `json:"path"`
	Port int             `json:"port"`
	Type string          `json:"type"`
}

// volumeInfo CreateAnswer 中的 volume
type volumeInfo struct {
	ID              int64   `json:"id"`
	Type            string  `json:"type"`
	StoragePoolType string  `json:"storagePoolType"`
	StoragePoolUUID string  `json:"storagePoolUuid"`
	Name            string  `json:"name"`
	MountPoint      string  `json:"mountPoint"`
	Path            string  `json:"path"`
	Size            int64   `json:"size"`
	ChainInfo       *string `json:"chainInfo"`
}

// validStoragePool 只接受本地目录类型的池
func validStoragePool(poolType, localPath, poolUUID string) error {
	t, err := storage.ParsePoolType(poolType)
	if err != nil || t != storage.PoolFilesystem {
		return apierror.Invalidf("Primary storage pool %s type %s local path %s has invalid StoragePoolType", poolUUID, poolType, localPath)
	}
	info, err := os.Stat(localPath)
	if err != nil || !info.IsDir() {
		return apierror.Invalidf("Primary storage pool %s type %s local path %s has invalid local path", poolUUID, poolType, localPath)
	}
	return nil
}

// Create 在主存储中创建空白卷，或者从已下载到主存储的模板复制一个卷
func (s *Service) Create(ctx context.Context, cmd *command.Command) *command.Answer {
	logger := zerolog.Ctx(ctx)
	ans := command.NewAnswer(command.CreateAnswer, cmd.ContextMap())

	var req struct {
		VolID               int64         `json:"volId"`
		TemplateURL         string        `json:"templateUrl"`
		Pool                storagePoolTO `json:"pool"`
		DiskCharacteristics struct {
			Name string `json:"name"`
			Type string `json:"type"`
			Size uint64 `json:"size"`
		} `json:"diskCharacteristics"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	disk := req.DiskCharacteristics
	pool := req.Pool
	ans.Set("volume", volumeInfo{})

	if err := validStoragePool(pool.Type, pool.Path, pool.UUID); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	volume := volumeInfo{
		ID:              req.VolID,
		Type:            disk.Type,
		StoragePoolType: pool.Type,
		StoragePoolUUID: pool.UUID,
		Size:            int64(disk.Size),
	}

	if req.TemplateURL == "" {
		diskType, err := storage.ParseDiskType(disk.Type)
		if err != nil {
			return failed(ctx, ans, cmd, apierror.Invalidf("Cannot create volumes of type %s", nonEmpty(disk.Type)))
		}
		newPath := filepath.Join(pool.Path, disk.Name, diskType.Extension())
		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			return failed(ctx, ans, cmd, apierror.IO("create volume directory", err))
		}
		if err := s.hv.CreateDisk(ctx, disk.Size, newPath); err != nil {
			return failed(ctx, ans, cmd, err)
		}
		if !transfer.Exists(newPath) {
			return failed(ctx, ans, cmd, apierror.IO(fmt.Sprintf("Failed to create DATADISK with name %s", disk.Name), nil))
		}
		volume.Name = disk.Name
		volume.MountPoint = newPath
		volume.Path = newPath
	} else {
		if strings.ContainsAny(req.TemplateURL, `/\`) {
			return failed(ctx, ans, cmd, apierror.Invalidf(
				"Problem with templateURL %s the URL should be volume UUID in primary storage created by previous PrimaryStorageDownloadCommand",
				req.TemplateURL))
		}
		logger.Debug().Str("template", req.TemplateURL).Msg("Template's name in primary store")

		newName := uuid.New().String() + filepath.Ext(req.TemplateURL)
		newPath := filepath.Join(pool.Path, newName)
		if err := transfer.CopyFile(ctx, filepath.Join(pool.Path, req.TemplateURL), newPath); err != nil {
			return failed(ctx, ans, cmd, err)
		}
		volume.Name = newName
		volume.MountPoint = newPath
		volume.Path = newPath
	}

	logger.Info().
		Str("pool_uuid", pool.UUID).
		Str("path", volume.Path).
		Msg("Volume created")
	ans.Set("volume", volume)
	return ans.Succeed("")
}

func nonEmpty(s string) string {
	if s == "" {
		return "NULL"
	}
	return s
}

// CreateObject 在主存储中创建空白卷，应答中的 path 为卷的 uuid
func (s *Service) CreateObject(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.CreateObjectAnswer, cmd.ContextMap())
	ans.Set("data", nil)

	var req struct {
		Data command.Typed `json:"data"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	obj, err := storage.ParseDataObject(req.Data)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	vol, ok := obj.(*storage.VolumeObject)
	if !ok {
		return failed(ctx, ans, cmd, apierror.Unsupportedf("cannot create object of type %s", obj.TypeName()))
	}
	if !storage.IsPrimary(vol.Store) {
		return failed(ctx, ans, cmd, apierror.Unsupportedf("volumes can only be created in primary storage, got %s", storage.Kind(vol.Store)))
	}
	if vol.Format == "" {
		vol.Format = "VHD"
	}

	path, err := s.resolver.FullPath(ctx, vol)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if err := s.hv.CreateDisk(ctx, uint64(max(vol.Size, 0)), path); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if !transfer.Exists(path) {
		return failed(ctx, ans, cmd, apierror.IO("Failed to create disk with name "+path, nil))
	}

	vol.Path = vol.UUID
	data, err := storage.Encode(vol)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	zerolog.Ctx(ctx).Info().Str("path", path).Msg("Volume object created")
	ans.Set("data", data)
	return ans.Succeed("")
}

// PrimaryStorageDownload 把模板下载到主存储，文件名为新的 uuid 加原扩展名
func (s *Service) PrimaryStorageDownload(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.PrimaryStorageDownloadAnswer, cmd.ContextMap())
	ans.Set("templateSize", 0)
	ans.Set("installPath", nil)

	var req struct {
		URL       string `json:"url"`
		LocalPath string `json:"localPath"`
		PoolUUID  string `json:"poolUuid"`
	}
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}

	if info, err := os.Stat(req.LocalPath); err != nil || !info.IsDir() {
		return failed(ctx, ans, cmd, apierror.Invalidf("None existent local path %s", req.LocalPath))
	}

	ext := templateExtension(req.URL)
	if ext == "" {
		return failed(ctx, ans, cmd, apierror.Invalidf("Invalid file extension for hypervisor type in source URL %s", command.Redact([]byte(req.URL))))
	}

	name := uuid.New().String() + ext
	dest := filepath.Join(req.LocalPath, name)
	if err := s.engine.Download(ctx, req.URL, dest); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return failed(ctx, ans, cmd, apierror.IO("stat downloaded template", err))
	}

	ans.Set("templateSize", info.Size())
	ans.Set("installPath", name)
	return ans.Succeed("")
}

// templateExtension 返回支持的磁盘镜像扩展名，不支持时返回空
func templateExtension(rawURL string) string {
	u := strings.ToLower(rawURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range []string{".vhdx", ".vhd", ".qcow2"} {
		if strings.HasSuffix(u, ext) {
			return ext
		}
	}
	return ""
}
