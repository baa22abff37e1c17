// Package share 负责远程共享（NFS、SMB/CIFS）的解析与挂载
package share

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Share 描述一个远程共享
type Share struct {
	Scheme   string // nfs 或 cifs
	Host     string
	Export   string // 以 / 开头的导出路径，cifs 时第一段为共享名
	Domain   string
	User     string
	Password string
}

// ParseURI 解析 nfs://host/export 或 cifs://host/share/dir?user=&password=&domain=
func ParseURI(raw string) (*Share, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse share uri: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "nfs", "cifs", "smb":
	default:
		return nil, fmt.Errorf("unsupported share scheme %q", u.Scheme)
	}
	if scheme == "smb" {
		scheme = "cifs"
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("share uri %s has no host", redactURI(u))
	}

	q := u.Query()
	return &Share{
		Scheme:   scheme,
		Host:     u.Hostname(),
		Export:   cleanExport(u.Path),
		Domain:   q.Get("domain"),
		User:     q.Get("user"),
		Password: q.Get("password"),
	}, nil
}

func cleanExport(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return p
}

// UNC 返回共享的规范化 UNC 路径 \\host\share\path
func (s Share) UNC() string {
	return NormalizeUNC(`\\` + s.Host + s.Export)
}

// String 返回不含凭据的 URI
func (s Share) String() string {
	return fmt.Sprintf("%s://%s%s", s.Scheme, s.Host, s.Export)
}

// NormalizeUNC 把路径规范化为 \\host\share\path 形式
// 正斜杠转为反斜杠，合并重复分隔符，去掉结尾分隔符
func NormalizeUNC(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)
	p = strings.TrimLeft(p, `\`)
	parts := strings.Split(p, `\`)
	kept := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			kept = append(kept, part)
		}
	}
	return `\\` + strings.Join(kept, `\`)
}

// JoinUNC 在 UNC 根后追加相对路径
func JoinUNC(root string, elem ...string) string {
	return NormalizeUNC(root + `\` + strings.Join(elem, `\`))
}

func redactURI(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
