package transfer

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// IsCompressed 根据源文件名判断是否需要解压
func IsCompressed(srcName string) bool {
	switch strings.ToLower(filepath.Ext(srcName)) {
	case ".bz2", ".gz", ".zip":
		return true
	}
	return false
}

// Decompress 在原地解压 path，压缩格式由 srcName 的扩展名决定
// 先解压到 path.tmp，再删除原文件并重命名，临时文件残留视为失败
func Decompress(ctx context.Context, path, srcName string) error {
	ext := strings.ToLower(filepath.Ext(srcName))
	if !IsCompressed(srcName) {
		return nil
	}

	tmp := path + ".tmp"
	zerolog.Ctx(ctx).Info().
		Str("path", path).
		Str("format", ext).
		Msg("Decompressing file")

	var err error
	switch ext {
	case ".bz2":
		err = decompressStream(path, tmp, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		})
	case ".gz":
		err = decompressStream(path, tmp, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case ".zip":
		err = decompressZip(path, tmp)
	}
	if err != nil {
		os.Remove(tmp)
		return apierror.IO("decompress "+path, err)
	}

	if err := os.Remove(path); err != nil {
		return apierror.IO("delete compressed file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apierror.IO("rename decompressed file", err)
	}
	if Exists(tmp) {
		return apierror.Invariantf("Failed to decompress %s, temporary file %s was left behind", path, tmp)
	}
	return nil
}

func decompressStream(src, dest string, open func(io.Reader) (io.Reader, error)) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	r, err := open(in)
	if err != nil {
		return err
	}
	return writeAll(dest, r)
}

func decompressZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return writeAll(dest, rc)
	}
	return os.ErrNotExist
}

func writeAll(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
