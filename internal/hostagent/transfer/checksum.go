package transfer

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// Checksum 计算文件的 MD5，返回小写十六进制
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apierror.IO("open "+path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apierror.IO("read "+path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum 比较文件的 MD5 与期望值，忽略大小写
func VerifyChecksum(path, expected string) (bool, string, error) {
	actual, err := Checksum(path)
	if err != nil {
		return false, "", err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), actual, nil
}
