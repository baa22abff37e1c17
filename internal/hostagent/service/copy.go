package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/internal/hostagent/transfer"
	"github.com/jimyag/hostagent/pkg/apierror"
)

type copyRequest struct {
	SrcTO  command.Typed `json:"srcTO"`
	DestTO command.Typed `json:"destTO"`
	Wait   int           `json:"wait"`
}

// Copy 在不同数据存储之间复制模板和卷
//
// 支持的组合：
//   - 二级存储或对象存储中的模板 -> 主存储模板（首次下载模板）
//   - 主存储模板 -> 卷
//   - 卷 -> 卷
//   - 卷 -> 二级存储模板（创建模板）
func (s *Service) Copy(ctx context.Context, cmd *command.Command) *command.Answer {
	ans := command.NewAnswer(command.CopyCmdAnswer, cmd.ContextMap())
	ans.Set("newData", nil)

	var req copyRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	src, err := storage.ParseDataObject(req.SrcTO)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}
	dest, err := storage.ParseDataObject(req.DestTO)
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	ctx = zerolog.Ctx(ctx).With().
		Str("src", storage.Kind(src.Base().Store)).
		Str("dest", storage.Kind(dest.Base().Store)).
		Logger().WithContext(ctx)

	var newData command.Typed
	switch {
	case isTemplate(src) && isTemplate(dest):
		newData, err = s.stageTemplate(ctx, src.(*storage.TemplateObject), dest.(*storage.TemplateObject), req.DestTO)
	case isTemplate(src) && isVolume(dest):
		newData, err = s.copyToVolume(ctx, src, dest.(*storage.VolumeObject))
	case isVolume(src) && isVolume(dest):
		newData, err = s.copyToVolume(ctx, src, dest.(*storage.VolumeObject))
	case isVolume(src) && isTemplate(dest):
		newData, err = s.createTemplate(ctx, src.(*storage.VolumeObject), dest.(*storage.TemplateObject))
	default:
		err = apierror.Unsupportedf("Data store combination not supported")
	}
	if err != nil {
		return failed(ctx, ans, cmd, err)
	}

	ans.Set("newData", newData)
	return ans.Succeed("")
}

func isTemplate(obj storage.DataObject) bool {
	_, ok := obj.(*storage.TemplateObject)
	return ok
}

func isVolume(obj storage.DataObject) bool {
	_, ok := obj.(*storage.VolumeObject)
	return ok
}

// stageTemplate 把模板从二级存储或对象存储下载到主存储
// 目标文件已存在且校验和一致时跳过下载，应答原样返回 destTO
func (s *Service) stageTemplate(ctx context.Context, src, dest *storage.TemplateObject, destTO command.Typed) (command.Typed, error) {
	logger := zerolog.Ctx(ctx)

	switch src.Store.(type) {
	case storage.NFSStore, storage.ObjectStore:
	default:
		return command.Typed{}, apierror.Unsupportedf("Data store combination not supported: template from %s", storage.Kind(src.Store))
	}
	if !storage.IsPrimary(dest.Store) {
		return command.Typed{}, apierror.Unsupportedf("Data store combination not supported: template to %s", storage.Kind(dest.Store))
	}

	destFile, err := s.resolver.FullPath(ctx, dest)
	if err != nil {
		return command.Typed{}, err
	}

	checksum := dest.ChecksumValue()
	if checksum == "" {
		checksum = src.ChecksumValue()
	}
	if checksum != "" && transfer.Exists(destFile) {
		ok, actual, err := transfer.VerifyChecksum(destFile, checksum)
		if err != nil {
			return command.Typed{}, err
		}
		if ok {
			logger.Info().Str("path", destFile).Msg("Template already downloaded, checksum matches")
			return destTO, nil
		}
		logger.Warn().
			Str("path", destFile).
			Str("expected", checksum).
			Str("actual", actual).
			Msg("Existing template has different checksum, downloading again")
	}

	if _, err := transfer.RemoveIfExists(ctx, destFile); err != nil {
		return command.Typed{}, err
	}

	switch store := src.Store.(type) {
	case storage.ObjectStore:
		err = s.engine.DownloadObject(ctx, store, storage.ObjectKey(src), destFile)
	default:
		var srcFile string
		srcFile, err = s.resolver.FullPath(ctx, src)
		if err == nil {
			err = transfer.CopyFile(ctx, srcFile, destFile)
		}
	}
	if err != nil {
		return command.Typed{}, err
	}

	if transfer.IsCompressed(src.Path) {
		if err := transfer.Decompress(ctx, destFile, src.Path); err != nil {
			return command.Typed{}, err
		}
	}

	if !transfer.Exists(destFile) {
		return command.Typed{}, apierror.IO("Failed to create "+destFile+" , because the file is missing", nil)
	}

	logger.Info().Str("path", destFile).Msg("Template staged")
	return destTO, nil
}

// copyToVolume 从模板或卷复制出新卷
// 先删除按旧格式推测出的文件，再采用源格式并删除新路径上的旧文件
func (s *Service) copyToVolume(ctx context.Context, src storage.DataObject, dest *storage.VolumeObject) (command.Typed, error) {
	srcObj := src.Base()
	if _, ok := srcObj.Store.(storage.ObjectStore); ok {
		return command.Typed{}, apierror.Unsupportedf("Data store combination not supported: %s to volume", storage.Kind(srcObj.Store))
	}

	destFile, err := s.replaceTarget(ctx, dest, srcObj.Format)
	if err != nil {
		return command.Typed{}, err
	}

	srcFile, err := s.resolver.FullPath(ctx, src)
	if err != nil {
		return command.Typed{}, err
	}
	if !transfer.Exists(srcFile) {
		return command.Typed{}, apierror.NotFoundf("Local template file missing from %s", srcFile)
	}
	if err := transfer.CopyFile(ctx, srcFile, destFile); err != nil {
		return command.Typed{}, err
	}

	logger := zerolog.Ctx(ctx)
	switch {
	case isTemplate(src):
		dest.Path = dest.UUID
	case storage.IsPrimary(srcObj.Store):
		dest.Path = dest.Path + "/" + dest.FileName()
	default:
		logger.Info().Str("path", dest.Path).Msg("Copied volume from secondary data store to primary")
	}

	logger.Info().
		Str("src_file", srcFile).
		Str("dest_file", destFile).
		Msg("Volume copied")
	return storage.Encode(dest)
}

// createTemplate 把卷复制到二级存储并写入 template.properties
func (s *Service) createTemplate(ctx context.Context, src *storage.VolumeObject, dest *storage.TemplateObject) (command.Typed, error) {
	if _, ok := dest.Store.(storage.NFSStore); !ok {
		return command.Typed{}, apierror.Unsupportedf("Data store combination not supported: volume to template in %s", storage.Kind(dest.Store))
	}

	destFile, err := s.replaceTarget(ctx, dest, src.Format)
	if err != nil {
		return command.Typed{}, err
	}
	srcFile, err := s.resolver.FullPath(ctx, src)
	if err != nil {
		return command.Typed{}, err
	}
	if !transfer.Exists(srcFile) {
		return command.Typed{}, apierror.NotFoundf("Local template file missing from %s", srcFile)
	}
	if err := transfer.CopyFile(ctx, srcFile, destFile); err != nil {
		return command.Typed{}, err
	}

	info, err := os.Stat(destFile)
	if err != nil {
		return command.Typed{}, apierror.IO("stat template file", err)
	}
	checksum, err := transfer.Checksum(destFile)
	if err != nil {
		return command.Typed{}, err
	}
	virtualSize := src.Size
	if virtualSize <= 0 {
		// 卷对象没有携带大小时从镜像头读取
		vs, err := s.hv.DiskVirtualSize(ctx, destFile)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("file", destFile).Msg("Failed to read virtual size, using physical size")
			vs = uint64(info.Size())
		}
		virtualSize = int64(vs)
	}
	propsFile, err := transfer.WriteTemplateProperties(filepath.Dir(destFile), transfer.TemplateProperties{
		ID:           dest.ID,
		UniqueName:   dest.UUID,
		Format:       dest.Format,
		PhysicalSize: info.Size(),
		VirtualSize:  virtualSize,
	})
	if err != nil {
		return command.Typed{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("dest_file", destFile).
		Str("properties", propsFile).
		Msg("Template created")

	tmpl := &storage.TemplateObject{Object: storage.Object{
		UUID:     dest.UUID,
		Size:     src.Size,
		Format:   src.Format,
		Path:     dest.Path + "/" + dest.FileName(),
		Checksum: checksum,
		Store:    dest.Store,
		StoreTO:  dest.StoreTO,
	}}
	return storage.Encode(tmpl)
}

// replaceTarget 删除目标的旧文件，目标格式改为 format 后返回新的目标路径
func (s *Service) replaceTarget(ctx context.Context, dest storage.DataObject, format string) (string, error) {
	o := dest.Base()
	guessed, err := s.resolver.FullPath(ctx, dest)
	if err != nil {
		return "", err
	}
	if err := removeStaleFile(ctx, guessed); err != nil {
		return "", err
	}

	o.Format = format
	destFile, err := s.resolver.FullPath(ctx, dest)
	if err != nil {
		return "", err
	}
	if err := removeStaleFile(ctx, destFile); err != nil {
		return "", err
	}
	return destFile, nil
}

// removeStaleFile 只删除普通文件，目录保持不变
func removeStaleFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	zerolog.Ctx(ctx).Info().Str("path", path).Msg("Deleting existing file")
	_, err = transfer.RemoveIfExists(ctx, path)
	return err
}
