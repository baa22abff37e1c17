package transfer

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimyag/hostagent/internal/hostagent/share"
	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/pkg/apierror"
)

type fakeConnector struct {
	root   string
	shares []share.Share
}

func (f *fakeConnector) Connect(_ context.Context, s *share.Share) (string, error) {
	f.shares = append(f.shares, *s)
	return f.root, nil
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDownloadHTTP(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("disk"), 1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tmpl/t1.vhd" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	e := New(nil, "")
	dest := filepath.Join(t.TempDir(), "sub", "t1.vhd")

	require.NoError(t, e.Download(context.Background(), server.URL+"/tmpl/t1.vhd", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	err = e.Download(context.Background(), server.URL+"/missing.vhd", filepath.Join(t.TempDir(), "x.vhd"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierror.ErrIO))
	assert.Contains(t, apierror.Detail(err), "404")
}

func TestDownloadUnsupportedScheme(t *testing.T) {
	t.Parallel()

	e := New(nil, "")
	err := e.Download(context.Background(), "ftp://host/file.vhd?password=secret", filepath.Join(t.TempDir(), "f"))
	require.Error(t, err)
	detail := apierror.Detail(err)
	assert.Equal(t, "Unsupported URI scheme ftp in source URI ftp://host/file.vhd", detail)
	assert.NotContains(t, detail, "secret")
}

func TestDownloadNFS(t *testing.T) {
	t.Parallel()

	secondary := t.TempDir()
	writeFile(t, filepath.Join(secondary, "systemvm.iso"), []byte("iso"))

	e := New(nil, secondary)
	dest := filepath.Join(t.TempDir(), "systemvm.iso")
	require.NoError(t, e.Download(context.Background(), "nfs://10.0.0.5/export/iso/systemvm.iso", dest))
	assert.FileExists(t, dest)
}

func TestDownloadCIFS(t *testing.T) {
	t.Parallel()

	mount := t.TempDir()
	writeFile(t, filepath.Join(mount, "t1.vhd"), []byte("vhd"))
	conn := &fakeConnector{root: mount}

	e := New(conn, "")
	dest := filepath.Join(t.TempDir(), "t1.vhd")
	require.NoError(t, e.Download(context.Background(), "cifs://fs01/share/tmpl/t1.vhd?user=u&password=p", dest))
	assert.FileExists(t, dest)
	require.Len(t, conn.shares, 1)
	assert.Equal(t, "/share/tmpl", conn.shares[0].Export)
	assert.Equal(t, "p", conn.shares[0].Password)
}

func TestDownloadObject(t *testing.T) {
	t.Parallel()

	payload := []byte("template bytes from object store")
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		http.ServeContent(w, r, "obj", time.Time{}, bytes.NewReader(payload))
	}))
	defer server.Close()

	e := New(nil, "")
	store := storage.ObjectStore{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    "templates",
		AccessKey: "ak",
		SecretKey: "sk",
	}
	dest := filepath.Join(t.TempDir(), "t1.vhd")
	require.NoError(t, e.DownloadObject(context.Background(), store, "tmpl/t1.vhd", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, "/templates/tmpl/t1.vhd", gotPath)
}

func TestCopyFileAndRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.vhd")
	writeFile(t, src, []byte("data"))

	dest := filepath.Join(dir, "a", "b", "dest.vhd")
	require.NoError(t, CopyFile(context.Background(), src, dest))
	assert.FileExists(t, dest)

	// 目录已存在时再次复制不报错
	require.NoError(t, CopyFile(context.Background(), src, dest))

	err := CopyFile(context.Background(), filepath.Join(dir, "missing"), dest)
	assert.True(t, errors.Is(err, apierror.ErrNotFound))

	removed, err := RemoveIfExists(context.Background(), dest)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = RemoveIfExists(context.Background(), dest)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDecompress(t *testing.T) {
	t.Parallel()

	content := []byte("uncompressed disk image")

	t.Run("gzip", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(content)
		require.NoError(t, zw.Close())

		path := filepath.Join(t.TempDir(), "t1.vhd")
		writeFile(t, path, buf.Bytes())
		require.NoError(t, Decompress(context.Background(), path, "t1.vhd.gz"))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, got)
		assert.NoFileExists(t, path+".tmp")
	})

	t.Run("zip", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("t1.vhd")
		require.NoError(t, err)
		_, _ = w.Write(content)
		require.NoError(t, zw.Close())

		path := filepath.Join(t.TempDir(), "t1.vhd")
		writeFile(t, path, buf.Bytes())
		require.NoError(t, Decompress(context.Background(), path, "T1.VHD.ZIP"))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("not compressed", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "t1.vhd")
		writeFile(t, path, content)
		require.NoError(t, Decompress(context.Background(), path, "t1.vhd"))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("corrupt bz2", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "t1.vhd")
		writeFile(t, path, content)
		err := Decompress(context.Background(), path, "t1.vhd.bz2")
		require.Error(t, err)
		assert.NoFileExists(t, path+".tmp")
	})
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, []byte("hello"))

	sum, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	ok, _, err := VerifyChecksum(path, "5D41402ABC4B2A76B9719D911017C592")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, actual, err := VerifyChecksum(path, "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, sum, actual)
}

func TestTemplateProperties(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteTemplateProperties(dir, TemplateProperties{
		ID:           "201",
		UniqueName:   "abc-uuid",
		Format:       "VHD",
		PhysicalSize: 512,
		VirtualSize:  2048,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, TemplatePropertiesFile), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := strings.Join([]string{
		"id=201",
		"filename=abc-uuid.vhd",
		"vhd.filename=abc-uuid.vhd",
		"uniquename=abc-uuid",
		"vhd=true",
		"virtualsize=2048",
		"vhd.virtualsize=2048",
		"size=512",
		"vhd.size=512",
		"public=false",
	}, "\n") + "\n"
	assert.Equal(t, want, string(raw))
	assert.NotContains(t, string(raw), "\r")

	props, err := ReadTemplateProperties(path)
	require.NoError(t, err)
	assert.Equal(t, "abc-uuid.vhd", props["filename"])
	assert.Equal(t, "2048", props["virtualsize"])
}
