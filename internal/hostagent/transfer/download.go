package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// Download 把 uri 指向的文件下载到 dest
// 支持 nfs（本地二级存储挂载）、cifs（挂载共享后复制）和 http(s)
func (e *Engine) Download(ctx context.Context, uri, dest string) error {
	logger := zerolog.Ctx(ctx)

	u, err := url.Parse(uri)
	if err != nil {
		return apierror.Invalidf("invalid source URI: %v", err)
	}

	logger.Info().
		Str("source", redactedURI(u)).
		Str("dest", dest).
		Msg("Downloading file")

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "nfs":
		if e.localSecondary == "" {
			return apierror.Invalidf("no local secondary storage configured for %s", redactedURI(u))
		}
		src := filepath.Join(e.localSecondary, path.Base(u.Path))
		if err := CopyFile(ctx, src, dest); err != nil {
			return err
		}

	case "cifs", "smb":
		if err := e.downloadFromShare(ctx, uri, dest); err != nil {
			return err
		}

	case "http", "https":
		if err := e.downloadHTTP(ctx, uri, dest); err != nil {
			return err
		}

	default:
		return apierror.Unsupportedf("Unsupported URI scheme %s in source URI %s", u.Scheme, redactedURI(u))
	}

	if !Exists(dest) {
		return apierror.IO(fmt.Sprintf("Failed to download %s to %s", redactedURI(u), dest), nil)
	}
	return nil
}

func (e *Engine) downloadFromShare(ctx context.Context, uri, dest string) error {
	s, err := share.ParseURI(uri)
	if err != nil {
		return apierror.Invalidf("%v", err)
	}
	fileName := path.Base(s.Export)
	s.Export = path.Dir(s.Export)

	if e.connector == nil {
		return apierror.Invalidf("no share connector configured for %s", s)
	}
	root, err := e.connector.Connect(ctx, s)
	if err != nil {
		return apierror.IO("Failed to connect "+s.UNC(), err)
	}
	return CopyFile(ctx, filepath.Join(root, fileName), dest)
}

func (e *Engine) downloadHTTP(ctx context.Context, uri, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return apierror.Invalidf("invalid source URI: %v", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return apierror.IO("HTTP download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apierror.IO(fmt.Sprintf("HTTP download failed with status %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apierror.IO("create destination directory", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return apierror.IO("create destination file", err)
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(dest)
		return apierror.IO("write destination file", err)
	}
	if err := f.Close(); err != nil {
		return apierror.IO("close destination file", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int64("bytes", n).
		Str("dest", dest).
		Msg("HTTP download finished")
	return nil
}

func redactedURI(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
