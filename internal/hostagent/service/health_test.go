package service

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/jimyag/hostagent/internal/hostagent/command"
)

// startSSHServer 启动只接受握手、拒绝所有认证的 sshd
func startSSHServer(t *testing.T) *net.TCPAddr {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(ssh.ConnMetadata, []byte) (*ssh.Permissions, error) {
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _, _, _ = ssh.NewServerConn(conn, cfg)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr)
}

func TestCheckSsh(t *testing.T) {
	t.Parallel()

	t.Run("sshd reachable", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		addr := startSSHServer(t)

		typ, body := env.call(t, command.CheckSshCommand,
			fmt.Sprintf(`{"name":"r-4-VM","ip":"%s","port":%d,"interval":0,"retries":1,"contextMap":{}}`, addr.IP, addr.Port))
		assert.Equal(t, command.CheckSshAnswer, typ)
		assert.Equal(t, true, body["result"], body["details"])
	})

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		_, body := env.call(t, command.CheckSshCommand,
			fmt.Sprintf(`{"name":"r-4-VM","ip":"127.0.0.1","port":%d,"interval":0,"retries":2}`, port))
		assert.Equal(t, false, body["result"])
		assert.Contains(t, body["details"], "CheckSshCommand failed due to Can not ping System vm r-4-VM")
	})

	t.Run("missing ip", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, body := env.call(t, command.CheckSshCommand, `{"name":"r-4-VM"}`)
		assert.Equal(t, false, body["result"])
	})
}
