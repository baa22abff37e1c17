package qemuimg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default path", func(t *testing.T) {
		t.Parallel()
		client := New("")
		assert.Equal(t, "qemu-img", client.qemuImgPath)
		assert.Equal(t, 30*time.Minute, client.timeout)
	})

	t.Run("custom path", func(t *testing.T) {
		t.Parallel()
		client := New("/usr/local/bin/qemu-img").WithTimeout(time.Minute)
		assert.Equal(t, "/usr/local/bin/qemu-img", client.qemuImgPath)
		assert.Equal(t, time.Minute, client.timeout)
	})
}

func TestDriverFormat(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		format string
		want   string
	}{
		{format: "VHD", want: "vpc"},
		{format: "vhdx", want: "vhdx"},
		{format: "QCOW2", want: "qcow2"},
		{format: "", want: "raw"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DriverFormat(tc.format))
		})
	}
}

func TestParseInfo(t *testing.T) {
	t.Parallel()

	out := []byte(`{"virtual-size": 10737418240, "filename": "/pool/a.vhd", "format": "vpc", "actual-size": 4096, "dirty-flag": false}`)
	info, err := parseInfo(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(10737418240), info.VirtualSize)
	assert.Equal(t, "vpc", info.Format)
	assert.Equal(t, uint64(4096), info.ActualSize)

	_, err = parseInfo([]byte("not json"))
	assert.Error(t, err)
}

func TestClient_CreateEmptyAndInfo(t *testing.T) {
	if _, err := exec.LookPath("qemu-img"); err != nil {
		t.Skip("qemu-img not found in PATH, skipping test")
	}

	t.Parallel()

	testcases := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{name: "create vhd image", format: "vhd"},
		{name: "create qcow2 image", format: "qcow2"},
		{name: "invalid format", format: "invalid", wantErr: true},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := New("")
			ctx := context.Background()
			outputFile := filepath.Join(t.TempDir(), "disk."+tc.format)

			err := client.CreateEmpty(ctx, tc.format, outputFile, 64<<20)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			_, err = os.Stat(outputFile)
			require.NoError(t, err, "output file should exist")

			info, err := client.Info(ctx, outputFile)
			require.NoError(t, err)
			assert.Equal(t, DriverFormat(tc.format), info.Format)
			assert.GreaterOrEqual(t, info.VirtualSize, uint64(64<<20))
		})
	}
}
