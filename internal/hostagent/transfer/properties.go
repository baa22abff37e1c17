package transfer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/jimyag/hostagent/pkg/apierror"
)

// TemplatePropertiesFile 模板元数据文件名
const TemplatePropertiesFile = "template.properties"

// TemplateProperties 模板元数据
type TemplateProperties struct {
	ID           string
	UniqueName   string
	Format       string
	PhysicalSize int64
	VirtualSize  int64
}

// Lines 按固定顺序生成元数据行
func (p TemplateProperties) Lines() []string {
	format := strings.ToLower(p.Format)
	fileName := p.UniqueName + "." + format
	return []string{
		"id=" + p.ID,
		"filename=" + fileName,
		format + ".filename=" + fileName,
		"uniquename=" + p.UniqueName,
		format + "=true",
		fmt.Sprintf("virtualsize=%d", p.VirtualSize),
		fmt.Sprintf("%s.virtualsize=%d", format, p.VirtualSize),
		fmt.Sprintf("size=%d", p.PhysicalSize),
		fmt.Sprintf("%s.size=%d", format, p.PhysicalSize),
		"public=false",
	}
}

// WriteTemplateProperties 在 dir 下写入 template.properties，换行为 \n，编码为 ISO-8859-1
func WriteTemplateProperties(dir string, p TemplateProperties) (string, error) {
	path := filepath.Join(dir, TemplatePropertiesFile)
	f, err := os.Create(path)
	if err != nil {
		return "", apierror.IO("create "+path, err)
	}

	w := bufio.NewWriter(charmap.ISO8859_1.NewEncoder().Writer(f))
	for _, line := range p.Lines() {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return "", apierror.IO("write "+path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", apierror.IO("write "+path, err)
	}
	if err := f.Close(); err != nil {
		return "", apierror.IO("close "+path, err)
	}
	return path, nil
}

// ReadTemplateProperties 读取 template.properties 为键值对
func ReadTemplateProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierror.IO("open "+path, err)
	}
	defer f.Close()

	props := make(map[string]string)
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[k] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, apierror.IO("read "+path, err)
	}
	return props, nil
}
