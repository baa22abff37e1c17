package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// Exists 判断文件是否存在
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CopyFile 按字节复制文件，目标目录不存在时创建，复制后重新检查目标是否存在
func CopyFile(ctx context.Context, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apierror.NotFoundf("source file %s does not exist", src)
		}
		return apierror.IO("open source file", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apierror.IO("create destination directory", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return apierror.IO("create destination file", err)
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return apierror.IO(fmt.Sprintf("copy %s to %s", src, dest), err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return apierror.IO("sync destination file", err)
	}
	if err := out.Close(); err != nil {
		return apierror.IO("close destination file", err)
	}

	if !Exists(dest) {
		return apierror.IO(fmt.Sprintf("Failed to create %s , because the file is missing", dest), nil)
	}

	zerolog.Ctx(ctx).Debug().
		Str("src", src).
		Str("dest", dest).
		Int64("bytes", n).
		Msg("File copied")
	return nil
}

// RemoveIfExists 先检查存在再删除，返回是否真的删除了文件
func RemoveIfExists(ctx context.Context, path string) (bool, error) {
	if !Exists(path) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, apierror.IO("delete "+path, err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("Deleted existing file")
	return true, nil
}
