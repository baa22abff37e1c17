package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/libvirt"
)

func localVolume(uuid, format, poolPath string) string {
	return fmt.Sprintf(`{"org.apache.cloudstack.storage.to.VolumeObjectTO":{"uuid":"%s","format":"%s","size":2048,`+
		`"dataStore":{"org.apache.cloudstack.storage.to.PrimaryDataStoreTO":{"uuid":"p1","poolType":"Filesystem","path":"%s"}}}}`,
		uuid, format, poolPath)
}

func TestAttach_InvalidDiskType(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name    string
		command string
		verb    string
	}{
		{name: "attach", command: command.AttachCommand, verb: "attached to"},
		{name: "dettach", command: command.DettachCommand, verb: "dettached from"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			payload := fmt.Sprintf(`{"vmName":"i-2-3-VM","disk":{"type":"ROOT","diskSeq":0,"data":%s}}`,
				localVolume("v1", "VHD", env.diskRoot))
			_, body := env.call(t, tc.command, payload)
			assert.Equal(t, false, body["result"])
			assert.Contains(t, body["details"], "Invalid disk type ROOT to be "+tc.verb+" vm i-2-3-VM")

			_, body = env.call(t, tc.command, `{"vmName":"i-2-3-VM","disk":{"type":"FLOPPY"}}`)
			assert.Equal(t, false, body["result"])
			assert.Contains(t, body["details"], "FLOPPY")

			env.hv.AssertNotCalled(t, "AttachDisk", mock.Anything, mock.Anything, mock.Anything)
			env.hv.AssertNotCalled(t, "AttachISO", mock.Anything, mock.Anything)
			env.hv.AssertNotCalled(t, "DetachDisk", mock.Anything, mock.Anything)
		})
	}
}

func TestAttach_DataDisk(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.hv.On("AttachDisk", "i-2-3-VM", filepath.Join(env.diskRoot, "v1.vhdx"), 2).Return(nil)

	disk := fmt.Sprintf(`{"type":"DATADISK","diskSeq":2,"data":%s}`, localVolume("v1", "VHDX", env.diskRoot))
	typ, body := env.call(t, command.AttachCommand, fmt.Sprintf(`{"vmName":"i-2-3-VM","disk":%s,"contextMap":{"job":"9"}}`, disk))
	assert.Equal(t, command.AttachAnswer, typ)
	assert.Equal(t, true, body["result"])
	assert.Equal(t, "DATADISK", body["disk"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"job": "9"}, body["contextMap"])
	env.hv.AssertExpectations(t)
}

func TestAttach_ISO(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.hv.On("AttachISO", "i-2-3-VM", filepath.Join(env.shareRoot, "iso", "201", "tools.iso")).Return(nil)

	payload := `{"vmName":"i-2-3-VM","disk":{"type":"ISO","data":{"org.apache.cloudstack.storage.to.TemplateObjectTO":{"uuid":"t1","path":"iso/201/tools.iso","format":"ISO",` +
		`"imageDataStore":{"com.cloud.agent.api.to.NfsTO":{"_url":"nfs://10.0.0.5/export/secondary","_role":"Image"}}}}}}`
	_, body := env.call(t, command.AttachCommand, payload)
	assert.Equal(t, true, body["result"], body["details"])
	env.hv.AssertExpectations(t)

	shares := env.conn.connected()
	require.Len(t, shares, 1)
	assert.Equal(t, "10.0.0.5", shares[0].Host)
	assert.Equal(t, "/export/secondary", shares[0].Export)
}

func TestDettach_DataDisk(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.hv.On("DetachDisk", "i-2-3-VM", filepath.Join(env.diskRoot, "v1.vhd")).Return(nil)

	disk := fmt.Sprintf(`{"type":"DATADISK","diskSeq":1,"data":%s}`, localVolume("v1", "VHD", env.diskRoot))
	typ, body := env.call(t, command.DettachCommand, fmt.Sprintf(`{"vmName":"i-2-3-VM","disk":%s}`, disk))
	assert.Equal(t, command.DettachAnswer, typ)
	assert.Equal(t, true, body["result"])
	env.hv.AssertExpectations(t)
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	t.Run("already deleted", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		path := filepath.Join(env.diskRoot, "gone.vhd")

		typ, body := env.call(t, command.DestroyCommand, fmt.Sprintf(`{"vmName":"i-2-3-VM","volume":{"path":"%s"}}`, path))
		assert.Equal(t, command.Answer, typ)
		assert.Equal(t, true, body["result"])
		env.hv.AssertNotCalled(t, "DetachDisk", mock.Anything, mock.Anything)
	})

	t.Run("detach before delete", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		path := filepath.Join(env.diskRoot, "v1.vhd")
		writeFile(t, path, "disk")
		env.hv.On("DetachDisk", "i-2-3-VM", path).Return(libvirt.ErrDiskNotAttached)

		_, body := env.call(t, command.DestroyCommand, fmt.Sprintf(`{"vmName":"i-2-3-VM","volume":{"path":"%s"}}`, path))
		assert.Equal(t, true, body["result"], body["details"])
		assert.NoFileExists(t, path)
		env.hv.AssertExpectations(t)
	})

	t.Run("detach failure keeps file", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		path := filepath.Join(env.diskRoot, "v1.vhd")
		writeFile(t, path, "disk")
		env.hv.On("DetachDisk", "i-2-3-VM", path).Return(fmt.Errorf("domain is locked"))

		_, body := env.call(t, command.DestroyCommand, fmt.Sprintf(`{"vmName":"i-2-3-VM","volume":{"path":"%s"}}`, path))
		assert.Equal(t, false, body["result"])
		assert.Equal(t, "DestroyCommand failed due to domain is locked", body["details"])
		assert.FileExists(t, path)
	})

	t.Run("missing volume", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, body := env.call(t, command.DestroyCommand, `{"vmName":"i-2-3-VM"}`)
		assert.Equal(t, false, body["result"])
		assert.Contains(t, body["details"], "No 'volume' details")
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := filepath.Join(env.diskRoot, "v1.vhd")
	writeFile(t, path, "disk")

	payload := fmt.Sprintf(`{"data":%s}`, localVolume("v1", "VHD", env.diskRoot))
	typ, body := env.call(t, command.DeleteCommand, payload)
	assert.Equal(t, command.Answer, typ)
	assert.Equal(t, true, body["result"])
	assert.NoFileExists(t, path)

	// 再次删除仍然成功
	_, body = env.call(t, command.DeleteCommand, payload)
	assert.Equal(t, true, body["result"])
}

// createDiskRun 模拟虚拟化层创建磁盘文件
func createDiskRun(t *testing.T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		writeFile(t, args.String(2), "blank")
	}
}

func TestCreate_BlankDisk(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pool := t.TempDir()
	want := filepath.Join(pool, "v1", "datadisk")
	env.hv.On("CreateDisk", mock.Anything, uint64(1073741824), want).Run(createDiskRun(t)).Return(nil)

	payload := fmt.Sprintf(`{"volId":17,"pool":{"id":1,"uuid":"p1","path":"%s","type":"Filesystem"},`+
		`"diskCharacteristics":{"name":"v1","type":"DATADISK","size":1073741824},"contextMap":{}}`, pool)
	typ, body := env.call(t, command.CreateCommand, payload)
	assert.Equal(t, command.CreateAnswer, typ)
	require.Equal(t, true, body["result"], body["details"])

	volume := body["volume"].(map[string]any)
	assert.Equal(t, want, volume["path"])
	assert.Equal(t, "v1", volume["name"])
	assert.EqualValues(t, 17, volume["id"])
	assert.Equal(t, "p1", volume["storagePoolUuid"])
	assert.Nil(t, volume["chainInfo"])
}

func TestCreate_FromTemplate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pool := t.TempDir()
	writeFile(t, filepath.Join(pool, "t1.vhd"), "template")

	payload := fmt.Sprintf(`{"volId":18,"templateUrl":"t1.vhd","pool":{"uuid":"p1","path":"%s","type":"Filesystem"},`+
		`"diskCharacteristics":{"name":"ROOT-18","type":"ROOT","size":2048}}`, pool)
	_, body := env.call(t, command.CreateCommand, payload)
	require.Equal(t, true, body["result"], body["details"])

	volume := body["volume"].(map[string]any)
	name := volume["name"].(string)
	assert.True(t, strings.HasSuffix(name, ".vhd"))
	assert.Equal(t, filepath.Join(pool, name), volume["path"])
	assert.Equal(t, "template", readFile(t, filepath.Join(pool, name)))
	env.hv.AssertNotCalled(t, "CreateDisk", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_Invalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pool := t.TempDir()

	testcases := []struct {
		name    string
		payload string
		details string
	}{
		{
			name:    "network pool",
			payload: fmt.Sprintf(`{"pool":{"uuid":"p1","path":"%s","type":"NetworkFilesystem"},"diskCharacteristics":{"name":"v1","type":"DATADISK","size":1}}`, pool),
			details: "Primary storage pool p1 type NetworkFilesystem local path " + pool + " has invalid StoragePoolType",
		},
		{
			name:    "missing path",
			payload: `{"pool":{"uuid":"p1","path":"/nonexistent/pool","type":"Filesystem"},"diskCharacteristics":{"name":"v1","type":"DATADISK","size":1}}`,
			details: "has invalid local path",
		},
		{
			name:    "template url with path",
			payload: fmt.Sprintf(`{"templateUrl":"nfs://10.0.0.5/t1.vhd","pool":{"uuid":"p1","path":"%s","type":"Filesystem"},"diskCharacteristics":{"name":"v1","type":"ROOT","size":1}}`, pool),
			details: "Problem with templateURL nfs://10.0.0.5/t1.vhd the URL should be volume UUID in primary storage",
		},
		{
			name:    "bad disk type",
			payload: fmt.Sprintf(`{"pool":{"uuid":"p1","path":"%s","type":"Filesystem"},"diskCharacteristics":{"name":"v1","type":"TAPE","size":1}}`, pool),
			details: "Cannot create volumes of type TAPE",
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, body := env.call(t, command.CreateCommand, tc.payload)
			assert.Equal(t, false, body["result"])
			assert.Contains(t, body["details"], tc.details)
		})
	}
}

func TestCreateObject(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pool := t.TempDir()
	path := filepath.Join(pool, "v9.vhd")
	env.hv.On("CreateDisk", mock.Anything, uint64(2048), path).Run(createDiskRun(t)).Return(nil)

	payload := fmt.Sprintf(`{"data":{"org.apache.cloudstack.storage.to.VolumeObjectTO":{"uuid":"v9","name":"DATA-9","size":2048,"volumeId":9,`+
		`"dataStore":{"org.apache.cloudstack.storage.to.PrimaryDataStoreTO":{"uuid":"p1","poolType":"Filesystem","path":"%s"}}}}}`, pool)
	typ, body := env.call(t, command.CreateObjectCommand, payload)
	assert.Equal(t, command.CreateObjectAnswer, typ)
	require.Equal(t, true, body["result"], body["details"])
	assert.FileExists(t, path)

	data := body["data"].(map[string]any)[command.VolumeObjectTO].(map[string]any)
	assert.Equal(t, "v9", data["path"])
	assert.Equal(t, "VHD", data["format"])
	assert.EqualValues(t, 9, data["volumeId"])
	assert.NotNil(t, data["dataStore"])
}

func TestPrimaryStorageDownload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tmpl/centos.vhd" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("vhd image bytes"))
	}))
	defer server.Close()

	t.Run("download", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		pool := t.TempDir()

		typ, body := env.call(t, command.PrimaryStorageDownloadCommand,
			fmt.Sprintf(`{"url":"%s/tmpl/centos.vhd","localPath":"%s","poolUuid":"p1"}`, server.URL, pool))
		assert.Equal(t, command.PrimaryStorageDownloadAnswer, typ)
		require.Equal(t, true, body["result"], body["details"])

		name := body["installPath"].(string)
		assert.True(t, strings.HasSuffix(name, ".vhd"))
		assert.EqualValues(t, len("vhd image bytes"), body["templateSize"])
		assert.Equal(t, "vhd image bytes", readFile(t, filepath.Join(pool, name)))
	})

	t.Run("invalid extension", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, body := env.call(t, command.PrimaryStorageDownloadCommand,
			fmt.Sprintf(`{"url":"%s/tmpl/centos.raw","localPath":"%s"}`, server.URL, t.TempDir()))
		assert.Equal(t, false, body["result"])
		assert.Contains(t, body["details"], "Invalid file extension for hypervisor type in source URL")
		assert.Nil(t, body["installPath"])
	})

	t.Run("missing local path", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, body := env.call(t, command.PrimaryStorageDownloadCommand,
			fmt.Sprintf(`{"url":"%s/tmpl/centos.vhd","localPath":"/nonexistent/pool"}`, server.URL))
		assert.Equal(t, false, body["result"])
		assert.Contains(t, body["details"], "None existent local path /nonexistent/pool")
	})
}

func TestTemplateExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".vhd", templateExtension("http://a/b/t.VHD"))
	assert.Equal(t, ".vhdx", templateExtension("http://a/b/t.vhdx"))
	assert.Equal(t, ".qcow2", templateExtension("http://a/b/t.qcow2?sig=1"))
	assert.Equal(t, "", templateExtension("http://a/b/t.iso"))
}
